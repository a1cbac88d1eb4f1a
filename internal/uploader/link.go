package uploader

import (
	"context"
	"os/exec"
	"strings"

	"codeberg.org/mutker/radmon/internal/errors"
	"codeberg.org/mutker/radmon/internal/logger"
)

// Link is the network link lifecycle. The radio stays down between upload
// passes; Up must block until the device has a usable address or the
// context expires, and Down is best effort.
type Link interface {
	Up(ctx context.Context) error
	Down()
}

// StaticLink is for always-connected hosts (bench setups on Ethernet) and
// tests; the link is permanently up.
type StaticLink struct{}

func (StaticLink) Up(context.Context) error { return nil }
func (StaticLink) Down()                    {}

// ExecLink brings the link up and down by running configured shell
// commands, the usual arrangement on a Linux SBC where association is a
// wpa_cli/ip invocation.
type ExecLink struct {
	UpCmd   string
	DownCmd string
}

func (l *ExecLink) Up(ctx context.Context) error {
	errFactory := errors.New()

	if l.UpCmd == "" {
		return nil
	}

	args := strings.Fields(l.UpCmd)
	if err := exec.CommandContext(ctx, args[0], args[1:]...).Run(); err != nil {
		if ctx.Err() != nil {
			return errFactory.Wrap(ErrLinkTimeout, ctx.Err())
		}
		return errFactory.Wrap(ErrLinkUp, err)
	}

	return nil
}

func (l *ExecLink) Down() {
	if l.DownCmd == "" {
		return
	}

	args := strings.Fields(l.DownCmd)
	if err := exec.Command(args[0], args[1:]...).Run(); err != nil {
		logger.Warn().Err(err).Msg("link teardown failed")
	}
}
