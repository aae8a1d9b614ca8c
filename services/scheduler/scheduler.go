// Package scheduler runs the periodic background jobs of the API.
package scheduler

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/user"
)

const jobTimeout = time.Minute

type (
	// UserDirectory is the part of the user service the jobs read.
	UserDirectory interface {
		PendingVerification(ctx context.Context) ([]user.User, error)
		Admins(ctx context.Context) ([]user.User, error)
	}

	// Sweeper drops expired entries of an in-memory store.
	Sweeper interface {
		Sweep()
	}

	Scheduler struct {
		cron    *cron.Cron
		users   UserDirectory
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func New(users UserDirectory, mailSvc core.EmailService, logger core.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		users:   users,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// Register schedules the jobs. An empty reminder spec disables the verification reminder;
// a nil sweeper disables the hourly sweep.
func (s *Scheduler) Register(conf core.JobsConfig, sweeper Sweeper) error {
	if conf.VerificationReminderSpec != "" {
		if _, err := s.cron.AddFunc(conf.VerificationReminderSpec, s.runVerificationReminder); err != nil {
			return errors.Wrapf(err, "scheduling verification reminder %q", conf.VerificationReminderSpec)
		}
	}
	if sweeper != nil {
		if _, err := s.cron.AddFunc("@hourly", sweeper.Sweep); err != nil {
			return errors.Wrap(err, "scheduling sweep")
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info(fmt.Sprintf("scheduler started with %d job(s)", len(s.cron.Entries())))
}

// Stop stops scheduling new runs and waits for the running ones, or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for running jobs")
	}
}

func (s *Scheduler) runVerificationReminder() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if err := s.SendVerificationReminder(ctx); err != nil {
		s.logger.Error(fmt.Sprintf("verification reminder: %v", err), err)
	}
}

// SendVerificationReminder emails every admin the pharmacists awaiting verification, with a CSV export.
// Nothing is sent when nobody is waiting.
func (s *Scheduler) SendVerificationReminder(ctx context.Context) error {
	pending, err := s.users.PendingVerification(ctx)
	if err != nil {
		return errors.Wrap(err, "querying pending users")
	}
	if len(pending) == 0 {
		return nil
	}
	admins, err := s.users.Admins(ctx)
	if err != nil {
		return errors.Wrap(err, "querying admins")
	}
	if len(admins) == 0 {
		s.logger.Warn(fmt.Sprintf("%d user(s) awaiting verification but no admin to notify", len(pending)))
		return nil
	}

	to := make([]mail.Address, 0, len(admins))
	for _, adm := range admins {
		to = append(to, mail.Address{Name: adm.Name, Address: adm.Email})
	}
	msg := &core.EmailMessage{
		To:           to[:1],
		Subject:      fmt.Sprintf("%d account(s) awaiting license verification", len(pending)),
		TemplateName: "pending_verifications",
		TemplateData: pending,
	}
	if len(to) > 1 {
		msg.Bcc = to[1:]
	} else {
		msg.Bcc = nil
	}

	export, err := pendingCSV(pending)
	if err != nil {
		return err
	}
	if err = msg.Attach(export, "pending_verifications.csv", "text/csv"); err != nil {
		return errors.Wrap(err, "attaching export")
	}
	s.mailSvc.SendMessages(msg)
	return nil
}

func pendingCSV(users []user.User) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"id", "name", "email", "license_image_url", "created_at"})
	for _, usr := range users {
		_ = w.Write([]string{usr.ID, usr.Name, usr.Email, usr.LicenseImageURL, usr.CreatedAt.Format(time.RFC3339)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "writing export")
	}
	return buf, nil
}
