// Package infrastructure builds the notification adapters from process
// configuration. Both binaries compose confirmations through it.
package infrastructure

import (
	"log/slog"

	"github.com/dmehra2102/shophub/internal/config"
	"github.com/dmehra2102/shophub/internal/notification/application"
	"github.com/dmehra2102/shophub/internal/notification/infrastructure/genai"
	"github.com/dmehra2102/shophub/internal/notification/infrastructure/smtp"
)

// NewComposer returns a composer with the generator and mailer cfg enables.
// obs may be nil.
func NewComposer(log *slog.Logger, cfg config.Config, customers application.CustomerReader, products application.ProductReader, obs application.Observer) *application.Composer {
	var opts []application.ComposerOption
	if obs != nil {
		opts = append(opts, application.WithComposerObserver(obs))
	}
	if g := Generator(cfg.Gemini); g != nil {
		opts = append(opts, application.WithGenerator(g))
	}
	if m := Mailer(log, cfg.SMTP); m != nil {
		opts = append(opts, application.WithMailer(m))
	}
	return application.NewComposer(log, customers, products, opts...)
}

// Generator is nil without an API key.
func Generator(cfg config.GeminiConfig) application.TextGenerator {
	if cfg.APIKey == "" {
		return nil
	}
	return genai.NewClient(genai.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	})
}

// Mailer is nil when the settings are incomplete or the transport cannot be
// built.
func Mailer(log *slog.Logger, cfg config.SMTPConfig) application.Mailer {
	if !cfg.Complete() {
		log.Warn("smtp settings incomplete, confirmations will not be mailed")
		return nil
	}
	tr, err := smtp.NewTransport(smtp.Config{
		Host: cfg.Host,
		Port: cfg.Port,
		User: cfg.User,
		Pass: cfg.Pass,
		From: cfg.Sender(),
	})
	if err != nil {
		log.Error("smtp transport disabled", "err", err)
		return nil
	}
	return tr
}
