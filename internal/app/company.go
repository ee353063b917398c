package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyrily/hyrily/internal/company"
	"github.com/hyrily/hyrily/internal/questions"
	"github.com/hyrily/hyrily/internal/store"
)

func (r Runner) commandCompanyCreate(ctx context.Context, inv invocation) error {
	cfg := inv.cfg()
	opts := inv.parsed.Company
	total, selectCount := cfg.Company.Candidates, cfg.Company.SelectCount
	if opts.Candidates > 0 {
		total = opts.Candidates
	}
	if opts.SelectCount > 0 {
		selectCount = opts.SelectCount
	}
	cfg.Interview.Stack = opts.Stack
	cfg.Interview.Questions = cfg.Company.Questions

	repo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	eng, err := buildEngine(ctx, cfg, inv.logger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.closers.Release() }()

	qs, err := pickQuestions(ctx, cfg, eng.generator, inv.logger)
	if err != nil {
		return err
	}
	campaign, err := company.NewCampaign(opts.Name, opts.Stack, total, selectCount, questions.Take(qs, cfg.Company.Questions))
	if err != nil {
		return err
	}
	if err := repo.SaveCampaign(ctx, campaign); err != nil {
		return err
	}

	inv.logger.Info("campaign created", "id", campaign.ID, "company", campaign.Company, "candidates", total)
	fmt.Fprintf(r.Stdout, "Created campaign %s for %s\n", campaign.ID, campaign.Company)
	fmt.Fprintf(r.Stdout, "Join link: %s\n", campaign.JoinLink(cfg.Company.JoinBaseURL))
	return nil
}

func (r Runner) commandCompanyList(ctx context.Context, inv invocation) error {
	repo, closeStore, err := openStore(ctx, inv.cfg())
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	campaigns, err := repo.ListCampaigns(ctx)
	if err != nil {
		return err
	}
	if len(campaigns) == 0 {
		fmt.Fprintln(r.Stdout, "no campaigns")
		return nil
	}
	renderCampaigns(r.Stdout, campaigns)
	return nil
}

func (r Runner) commandCompanyShow(ctx context.Context, inv invocation, ranked bool) error {
	repo, closeStore, err := openStore(ctx, inv.cfg())
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	campaign, err := loadCampaign(ctx, repo, inv.parsed.Args[0])
	if err != nil {
		return err
	}

	done, total := campaign.Progress()
	fmt.Fprintf(r.Stdout, "%s (%s) %s\n", campaign.Company, campaign.Stack, campaign.Status)
	fmt.Fprintf(r.Stdout, "Progress: %d/%d  Average: %d%%\n", done, total, campaign.AverageScore())
	fmt.Fprintf(r.Stdout, "Join link: %s\n\n", campaign.JoinLink(inv.cfg().Company.JoinBaseURL))

	candidates := campaign.Candidates
	if ranked {
		candidates = campaign.Ranking()
	}
	renderCandidates(r.Stdout, candidates)

	if ranked && campaign.Status == company.StatusCompleted {
		fmt.Fprintln(r.Stdout)
		for _, cand := range campaign.Selected() {
			fmt.Fprintf(r.Stdout, "Selected: %s (%d%%)\n", cand.Name, cand.Score)
		}
	}
	return nil
}

// commandCompanyInterview runs the next pending candidate through the
// campaign's fixed questions in this terminal.
func (r Runner) commandCompanyInterview(ctx context.Context, inv invocation) error {
	cfg := inv.cfg()
	opts := inv.parsed.Practice
	if err := applyPractice(&cfg, "", 0, opts.Modality, opts.Timing, "", opts.QuestionSeconds, opts.SessionMinutes); err != nil {
		return err
	}

	repo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	campaign, err := loadCampaign(ctx, repo, inv.parsed.Args[0])
	if err != nil {
		return err
	}
	cand, err := campaign.NextCandidate()
	if err != nil {
		return err
	}
	candidateID := cand.ID
	if err := repo.SaveCampaign(ctx, campaign); err != nil {
		return err
	}
	fmt.Fprintf(r.Stdout, "Interviewing %s for %s\n\n", cand.Name, campaign.Company)

	eng, err := buildEngine(ctx, cfg, inv.logger)
	if err != nil {
		return errors.Join(err, resetCandidate(context.WithoutCancel(ctx), repo, campaign, candidateID))
	}
	defer func() { _ = eng.closers.Release() }()

	cfg.Interview.Stack = campaign.Stack
	reporter := store.NewSessionReporter(repo, store.KindCompany)
	report, err := r.runSession(ctx, sessionPlan{
		cfg:       cfg,
		questions: campaign.Questions,
		engine:    eng,
		reporter:  reporter,
		logger:    inv.logger,
	})

	// The session context may already be cancelled; bookkeeping still has to land.
	saveCtx := context.WithoutCancel(ctx)
	saved, ok := reporter.Last()
	if err != nil || !report.Completed || !ok {
		return errors.Join(err, resetCandidate(saveCtx, repo, campaign, candidateID))
	}

	if err := campaign.Record(candidateID, saved.ID, report); err != nil {
		return err
	}
	if err := repo.SaveCampaign(saveCtx, campaign); err != nil {
		return err
	}
	done, total := campaign.Progress()
	fmt.Fprintf(r.Stdout, "Recorded %s (%d/%d interviewed)\n", cand.Name, done, total)
	if campaign.Status == company.StatusCompleted {
		fmt.Fprintln(r.Stdout, "All candidates interviewed; run `hyrily company rank` for the selection.")
	}
	return nil
}

func resetCandidate(ctx context.Context, repo store.CampaignRepository, campaign *company.Campaign, candidateID string) error {
	if err := campaign.Reset(candidateID); err != nil {
		return err
	}
	return repo.SaveCampaign(ctx, campaign)
}

func loadCampaign(ctx context.Context, repo store.CampaignRepository, id string) (*company.Campaign, error) {
	campaign, err := repo.GetCampaign(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("campaign %s not found", id)
	}
	return campaign, err
}
