package cmd

import (
	"fmt"
	"log/slog"
)

type Check struct {
	BindOptions `embed:""`
}

// Run is called by Kong when the check command is executed. It fails when
// the output file is missing or differs from what generate would write.
func (c *Check) Run(logger *slog.Logger) error {
	b, err := c.bindings(logger)
	if err != nil {
		return err
	}
	path, err := c.generator(logger).Check(c.Lang, c.Output, b)
	if err != nil {
		return fmt.Errorf("check %s bindings (run 'hdrbind generate' to update): %w", c.Lang, err)
	}
	logger.Info("Bindings up to date", "language", c.Lang, "file", path)
	return nil
}
