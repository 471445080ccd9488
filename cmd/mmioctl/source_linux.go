package main

import (
	"context"

	"github.com/srediag/plugin-mmio/pkg/mmio"
	"github.com/srediag/plugin-mmio/pkg/uio"
)

type uioSource struct {
	dev   *uio.Device
	index int
}

func openUIO(ctx context.Context, cfg *uio.Config, opts *options) (source, error) {
	var (
		dev *uio.Device
		err error
	)
	if opts.device != "" {
		dev, err = uio.Open(cfg, opts.device)
	} else {
		dev, err = uio.OpenName(ctx, cfg, opts.uioName)
	}
	if err != nil {
		return nil, err
	}
	if info, err := dev.MapInfo(opts.index); err == nil {
		log.Debugf("%s (%s) map%d addr=%#x size=%#x offset=%#x",
			dev.DeviceName(), dev.Name(), opts.index, info.Addr, info.Size, info.Offset)
	}
	return &uioSource{dev: dev, index: opts.index}, nil
}

func (s *uioSource) Window(offset int64, length int) (*mmio.Window, error) {
	return s.dev.Regs(offset, length, s.index)
}

func (s *uioSource) IRQ() uio.IRQSource { return s.dev }

func (s *uioSource) Close() error { return s.dev.Close() }
