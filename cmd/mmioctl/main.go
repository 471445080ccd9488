// Command mmioctl reads, writes and dumps registers of a uio device or a
// shared memory region, and can serve their health and access metrics.
//
//	mmioctl -uio gpio read 4 0x10
//	mmioctl -device uio0 -index 1 write 2 0x04 0xbeef
//	mmioctl -shm /dev/shm/regs -size 4096 dump 0 64
//	mmioctl -uio gpio -probe-offset 0x8 -probe-mask 0x1 -probe-expect 0x1 serve :9100
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/srediag/plugin-mmio/api"
	"github.com/srediag/plugin-mmio/internal/logger"
	"github.com/srediag/plugin-mmio/pkg/mmio"
	"github.com/srediag/plugin-mmio/pkg/shm"
	"github.com/srediag/plugin-mmio/pkg/uio"
)

type options struct {
	uioName   string
	device    string
	shmPath   string
	shmSize   int
	index     int
	offset    int64
	length    int
	irq       bool
	namespace string
	probe     probeFlags
}

type probeFlags struct {
	offset int64
	width  int
	mask   uint64
	expect uint64
}

var log = logger.New("mmioctl", os.Stderr)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "mmioctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	var opts options
	fs := flag.NewFlagSet("mmioctl", flag.ContinueOnError)
	fs.StringVar(&opts.uioName, "uio", "", "uio device name as listed in /sys/class/uio/*/name")
	fs.StringVar(&opts.device, "device", "", "uio device node name, e.g. uio0")
	fs.StringVar(&opts.shmPath, "shm", "", "shared memory file to map instead of a uio device")
	fs.IntVar(&opts.shmSize, "size", 0, "shared memory size in bytes, 0 maps the existing file")
	fs.IntVar(&opts.index, "index", 0, "uio memory region index")
	fs.Int64Var(&opts.offset, "offset", 0, "window offset into the region")
	fs.IntVar(&opts.length, "length", -1, "window length, negative extends to the end of the region")
	fs.BoolVar(&opts.irq, "irq", false, "serve: count uio interrupts")
	fs.StringVar(&opts.namespace, "namespace", "mmioctl", "serve: metrics namespace")
	fs.Int64Var(&opts.probe.offset, "probe-offset", 0, "serve: health probe register offset")
	fs.IntVar(&opts.probe.width, "probe-width", 4, "serve: health probe register width in bytes")
	fs.Uint64Var(&opts.probe.mask, "probe-mask", 0, "serve: bits of the probe register compared, 0 for all")
	fs.Uint64Var(&opts.probe.expect, "probe-expect", 0, "serve: expected value of the masked probe register")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: mmioctl [flags] read W OFF | write W OFF VAL | dump OFF LEN [W] | serve ADDR\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	logHost()

	src, err := openSource(ctx, &opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			log.Warnf("close: %v", cerr)
		}
	}()

	w, err := src.Window(opts.offset, opts.length)
	if err != nil {
		return err
	}
	log.Debugf("window %s", w)

	switch cmd, cargs := rest[0], rest[1:]; cmd {
	case "read":
		return cmdRead(w, cargs, out)
	case "write":
		return cmdWrite(w, cargs)
	case "dump":
		return cmdDump(w, cargs, out)
	case "serve":
		return cmdServe(ctx, src, w, &opts, cargs)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// source is a mapping provider that owns its mapping.
type source interface {
	api.MappingProvider
	io.Closer
}

// irqSource is implemented by sources backed by a uio device.
type irqSource interface {
	IRQ() uio.IRQSource
}

func openSource(ctx context.Context, opts *options) (source, error) {
	switch {
	case opts.shmPath != "":
		if opts.uioName != "" || opts.device != "" {
			return nil, errors.New("-shm cannot be combined with -uio or -device")
		}
		r, err := shm.Open(ctx, shm.OpenOptions{
			Path:   opts.shmPath,
			Size:   opts.shmSize,
			Create: opts.shmSize > 0,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	case opts.uioName != "" || opts.device != "":
		if opts.uioName != "" && opts.device != "" {
			return nil, errors.New("-uio and -device are mutually exclusive")
		}
		return openUIO(ctx, uio.DefaultConfig(), opts)
	default:
		return nil, errors.New("one of -uio, -device or -shm is required")
	}
}

func logHost() {
	info, err := host.Info()
	if err != nil {
		log.Debugf("host info: %v", err)
		return
	}
	log.Infof("host %s %s %s kernel %s", info.Hostname, info.Platform, info.PlatformVersion, info.KernelVersion)
}

func cmdRead(w *mmio.Window, args []string, out io.Writer) error {
	if len(args) != 2 {
		return errors.New("usage: read W OFF")
	}
	width, off, err := parseWidthOffset(args[0], args[1])
	if err != nil {
		return err
	}
	v, err := w.Read(off, width)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%#0*x\n", int(width)*2, v)
	return err
}

func cmdWrite(w *mmio.Window, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: write W OFF VAL")
	}
	width, off, err := parseWidthOffset(args[0], args[1])
	if err != nil {
		return err
	}
	v, err := strconv.ParseUint(args[2], 0, 64)
	if err != nil {
		return fmt.Errorf("value %q: %w", args[2], err)
	}
	if v&^width.Mask() != 0 {
		log.Warnf("value %#x truncated to %s", v, width)
	}
	return w.Write(off, width, v)
}

func cmdDump(w *mmio.Window, args []string, out io.Writer) error {
	if len(args) != 2 && len(args) != 3 {
		return errors.New("usage: dump OFF LEN [W]")
	}
	off, err := strconv.ParseInt(args[0], 0, 64)
	if err != nil {
		return fmt.Errorf("offset %q: %w", args[0], err)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("length %q: %w", args[1], err)
	}
	width := mmio.Width32
	if len(args) == 3 {
		if width, err = parseWidth(args[2]); err != nil {
			return err
		}
	}
	return w.Dump(out, off, n, width)
}

func parseWidth(s string) (mmio.Width, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("width %q: %w", s, err)
	}
	width := mmio.Width(n)
	if !width.Valid() {
		return 0, fmt.Errorf("width %q: %w", s, mmio.ErrInvalidWidth)
	}
	return width, nil
}

func parseWidthOffset(ws, offs string) (mmio.Width, int64, error) {
	width, err := parseWidth(ws)
	if err != nil {
		return 0, 0, err
	}
	off, err := strconv.ParseInt(offs, 0, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("offset %q: %w", offs, err)
	}
	return width, off, nil
}
