package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyrily/hyrily/internal/company"
)

// Files keeps one JSON document per record under a directory.
type Files struct {
	root string
}

// NewFiles creates root/sessions and root/campaigns if missing.
func NewFiles(root string) (*Files, error) {
	for _, dir := range []string{"sessions", "campaigns"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o700); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return &Files{root: root}, nil
}

func (f *Files) GetSession(_ context.Context, id string) (Session, error) {
	var s Session
	if err := f.read("sessions", id, &s); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (f *Files) SaveSession(_ context.Context, s Session) error {
	if s.ID == "" {
		return errEmptyID
	}
	return f.write("sessions", s.ID, s)
}

func (f *Files) ListSessions(ctx context.Context) ([]Session, error) {
	ids, err := f.ids("sessions")
	if err != nil {
		return nil, err
	}
	out := make([]Session, 0, len(ids))
	for _, id := range ids {
		s, err := f.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sortSessions(out)
	return out, nil
}

func (f *Files) GetCampaign(_ context.Context, id string) (*company.Campaign, error) {
	var c company.Campaign
	if err := f.read("campaigns", id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (f *Files) SaveCampaign(_ context.Context, c *company.Campaign) error {
	if c == nil || c.ID == "" {
		return errEmptyID
	}
	return f.write("campaigns", c.ID, c)
}

func (f *Files) ListCampaigns(ctx context.Context) ([]*company.Campaign, error) {
	ids, err := f.ids("campaigns")
	if err != nil {
		return nil, err
	}
	out := make([]*company.Campaign, 0, len(ids))
	for _, id := range ids {
		c, err := f.GetCampaign(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sortCampaigns(out)
	return out, nil
}

func (f *Files) path(kind, id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid record id %q", id)
	}
	return filepath.Join(f.root, kind, id+".json"), nil
}

func (f *Files) read(kind, id string, v any) error {
	path, err := f.path(kind, id)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s %s: %w", strings.TrimSuffix(kind, "s"), id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// write replaces the record atomically.
func (f *Files) write(kind, id string, v any) error {
	path, err := f.path(kind, id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func (f *Files) ids(kind string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(f.root, kind))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}
