package clicommon

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/pingcap/errors"
	"github.com/spf13/cobra"
)

// InitLogger installs a tint handler on the command's stderr, at the level
// given by --log-level (or PKGPLAN_LOG_LEVEL when the flag is not set).
func InitLogger(cmd *cobra.Command) error {
	raw, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return errors.Wrap(err, "failed to get log-level flag")
	}
	if env := os.Getenv(envPrefix + "_LOG_LEVEL"); env != "" && !cmd.Flags().Changed("log-level") {
		raw = env
	}

	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(raw))); err != nil {
		return errors.Annotatef(err, "invalid log level %q", raw)
	}
	w := cmd.ErrOrStderr()
	_, isFile := w.(*os.File)
	logger := slog.New(tint.NewHandler(w, &tint.Options{
		AddSource:   false,
		Level:       lvl,
		ReplaceAttr: nil,
		TimeFormat:  time.TimeOnly,
		NoColor:     !isFile,
	}))
	slog.SetDefault(logger)
	return nil
}
