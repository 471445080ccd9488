//go:build !linux

package main

import (
	"context"
	"errors"

	"github.com/srediag/plugin-mmio/pkg/uio"
)

func openUIO(ctx context.Context, cfg *uio.Config, opts *options) (source, error) {
	return nil, errors.New("uio devices are only available on linux")
}
