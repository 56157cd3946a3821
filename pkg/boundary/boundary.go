// Package boundary decides how the application recovers from a failed
// navigation.
//
// Recoverable failures (missing records, rejected submissions, missing
// permissions) are shown to the user as a notice that must be acknowledged,
// after which the user is sent to the home page. Anything else is treated
// as inconsistent client state and forces a full reload.
package boundary

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vango-dev/backoffice/pkg/apperr"
	"github.com/vango-dev/backoffice/pkg/i18n"
)

// Action is what the caller must do after recovery.
type Action int

const (
	// ActionRedirect sends the user to Decision.Path.
	ActionRedirect Action = iota

	// ActionReload discards all client state and reloads the application.
	ActionReload
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionRedirect:
		return "redirect"
	case ActionReload:
		return "reload"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Decision is the result of recovering from an error.
type Decision struct {
	Kind   apperr.Kind
	Action Action
	Path   string // redirect target, empty for reloads

	// Notice is the acknowledged notice, nil when none was shown.
	Notice *Notice
}

// Notice is the content of a blocking acknowledgement dialog.
type Notice struct {
	ID      string      `json:"id"`
	Kind    apperr.Kind `json:"-"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Confirm string      `json:"confirm"` // button label
}

// Confirmer shows a notice and blocks until the user dismisses it or ctx
// is done.
type Confirmer interface {
	Confirm(ctx context.Context, n Notice) error
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, n Notice) error

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, n Notice) error {
	return f(ctx, n)
}

// Boundary classifies errors and drives the acknowledgement flow.
type Boundary struct {
	confirmer Confirmer
	localizer *i18n.Localizer
	home      string
	logger    *slog.Logger
}

// Option configures a Boundary.
type Option func(*Boundary)

// WithHomePath sets the redirect target. Defaults to "/".
func WithHomePath(path string) Option {
	return func(b *Boundary) {
		b.home = path
	}
}

// WithLocalizer sets the localizer used for notice texts. Without one the
// message IDs are shown.
func WithLocalizer(l *i18n.Localizer) Option {
	return func(b *Boundary) {
		b.localizer = l
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Boundary) {
		b.logger = l
	}
}

// New creates a boundary. A nil confirmer skips the acknowledgement step.
func New(confirmer Confirmer, opts ...Option) *Boundary {
	b := &Boundary{
		confirmer: confirmer,
		home:      "/",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "boundary")
	return b
}

// Recover decides what to do about err. For recoverable kinds it blocks on
// the confirmer and returns a redirect to the home path; the returned error
// is non-nil only when the acknowledgement itself failed (for example the
// region went away while the dialog was open).
func (b *Boundary) Recover(ctx context.Context, err error) (Decision, error) {
	kind := apperr.KindOf(err)
	if !kind.Recoverable() {
		b.logger.Error("unrecoverable navigation error, reloading", "error", err)
		return Decision{Kind: kind, Action: ActionReload}, nil
	}

	b.logger.Info("recovering from navigation error", "kind", kind.String(), "error", err)

	notice := b.notice(kind)
	if b.confirmer != nil {
		if cerr := b.confirmer.Confirm(ctx, notice); cerr != nil {
			return Decision{Kind: kind, Action: ActionRedirect, Path: b.home, Notice: &notice},
				fmt.Errorf("boundary: confirm %s: %w", kind, cerr)
		}
	}

	return Decision{Kind: kind, Action: ActionRedirect, Path: b.home, Notice: &notice}, nil
}

// Notice returns the notice shown for kind. Unclassified kinds get the
// generic server error texts.
func (b *Boundary) Notice(kind apperr.Kind) Notice {
	return b.notice(kind)
}

func (b *Boundary) notice(kind apperr.Kind) Notice {
	var title, message string
	switch kind {
	case apperr.KindNotFound:
		title, message = "NoticeNotFoundTitle", "NoticeNotFoundMessage"
	case apperr.KindValidation, apperr.KindOperation:
		title, message = "NoticeInvalidTitle", "NoticeInvalidMessage"
	case apperr.KindAuthorization:
		title, message = "NoticeForbiddenTitle", "NoticeForbiddenMessage"
	default:
		title, message = "ServerErrorTitle", "ServerErrorMessage"
	}

	return Notice{
		ID:      uuid.NewString(),
		Kind:    kind,
		Title:   b.localizer.T(title, nil),
		Message: b.localizer.T(message, nil),
		Confirm: b.localizer.T("Confirm", nil),
	}
}
