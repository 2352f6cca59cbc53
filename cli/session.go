package cli

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/crowdsim/config"
	"go.viam.com/crowdsim/logging"
)

// session holds what the global flags set up for a command.
type session struct {
	logger    logging.Logger
	cfg       *config.Config
	logCloser io.Closer
	quiet     bool
}

func (s *session) before(c *cli.Context) error {
	logger := logging.NewBlankLogger("crowdsim")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	if path := c.Path(flagLogFile); path != "" {
		appender, closer := logging.NewFileAppender(path)
		logger.AddAppender(appender)
		s.logCloser = closer
	}
	config.InitLoggingSettings(logger, c.Bool(flagDebug))
	s.logger = logger
	s.quiet = c.Bool(flagQuiet)

	if path := c.Path(flagConfig); path != "" {
		cfg, err := config.Read(c.Context, path, logger)
		if err != nil {
			return err
		}
		s.cfg = cfg
	} else {
		cfg := config.Default()
		s.cfg = &cfg
	}
	config.UpdateFileConfigDebug(s.cfg.Debug)
	return nil
}

func (s *session) after(c *cli.Context) error {
	var err error
	if s.logger != nil {
		// syncing a terminal fails on some platforms and means nothing here
		_ = s.logger.Sync() //nolint:errcheck
	}
	if s.logCloser != nil {
		err = multierr.Append(err, errors.Wrap(s.logCloser.Close(), "cannot close log file"))
	}
	return err
}

func (s *session) progress(c *cli.Context) *progress {
	return newProgress(c.App.ErrWriter, withProgressOutput(!s.quiet))
}

// signalContext is cancelled on interrupt.
func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt)
}
