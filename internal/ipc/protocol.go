// Package ipc lets short-lived hyrily invocations steer the practice session
// that owns the runtime socket. Each connection carries one JSON request line
// and one JSON response line.
package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"slices"
)

const (
	CommandStatus = "status"
	CommandRecord = "record"
	CommandStop   = "stop"
	CommandSubmit = "submit"
	CommandCancel = "cancel"
)

var commands = []string{CommandStatus, CommandRecord, CommandStop, CommandSubmit, CommandCancel}

// maxRequestBytes bounds one request line; typed answers travel in Text.
const maxRequestBytes = 64 << 10

type Request struct {
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
}

// Known reports whether a session understands the command.
func (r Request) Known() bool {
	return slices.Contains(commands, r.Command)
}

type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func refuse(format string, args ...any) Response {
	return Response{Error: fmt.Sprintf(format, args...)}
}

// writeLine encodes v as a single newline-terminated JSON document.
func writeLine(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// readLine decodes one JSON line of at most limit bytes. A read failure is
// reported under "read", a malformed line under "decode".
func readLine(r io.Reader, limit int64, what string, v any) error {
	line, err := bufio.NewReader(io.LimitReader(r, limit)).ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read %s: %w", what, err)
	}
	if err := json.Unmarshal(line, v); err != nil {
		return fmt.Errorf("decode %s: %w", what, err)
	}
	return nil
}
