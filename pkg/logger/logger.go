package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the application logger. Development mode switches to the
// human-readable console encoder; production emits JSON.
func New(development bool) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if development {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("error creating logger: %w", err)
	}
	return l, nil
}
