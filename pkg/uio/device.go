//go:build linux

package uio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/sys/unix"

	"github.com/srediag/plugin-mmio/internal/logger"
	"github.com/srediag/plugin-mmio/pkg/mmio"
)

var (
	// ErrDeviceNotFound is returned when no uio device exports the requested name.
	ErrDeviceNotFound = errors.New("uio device not found")
	// ErrRegionRange is returned by Regs when the window does not fit the mapping.
	ErrRegionRange = errors.New("region range error")
	// ErrClosed is returned by a closed Device.
	ErrClosed = errors.New("uio device closed")

	hexValue = regexp.MustCompile(`^0[xX][0-9a-fA-F]+$`)
	decValue = regexp.MustCompile(`^[0-9]+$`)
)

// AttrError reports a sysfs attribute that is not an integer.
type AttrError struct {
	Path  string
	Value string
}

func (e *AttrError) Error() string {
	return fmt.Sprintf("uio: invalid value (file_name=%s,value=%s)", e.Path, e.Value)
}

// MapInfo is the sysfs description of one device memory region.
type MapInfo struct {
	Addr   uint64
	Size   uint64
	Offset uint64
}

type mapping struct {
	data []byte
	// start of the region inside data
	pageOffset int64
}

// Device is an open uio device.
type Device struct {
	cfg        Config
	name       string
	deviceName string
	file       *os.File
	log        *logger.Logger

	mu     sync.Mutex
	closed bool
	maps   cmap.ConcurrentMap[int, *mapping]
}

// FindDeviceByName returns the uioN device whose sysfs name matches name.
func FindDeviceByName(cfg *Config, name string) (string, error) {
	pattern := filepath.Join(cfg.SysfsRoot, "class", "uio", "uio*", "name")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	for _, f := range files {
		value, err := readFirstLine(f)
		if err != nil {
			continue
		}
		if value == name {
			return filepath.Base(filepath.Dir(f)), nil
		}
	}
	return "", fmt.Errorf("%w: name %q", ErrDeviceNotFound, name)
}

// Open opens the uio device with the given device name, e.g. "uio0".
func Open(cfg *Config, deviceName string) (*Device, error) {
	if err := VerifyConfig(cfg); err != nil {
		return nil, err
	}
	d := &Device{
		cfg:        *cfg,
		deviceName: deviceName,
		log:        logger.New("uio", cfg.LogOutput),
		maps:       cmap.NewWithCustomShardingFunction[int, *mapping](func(index int) uint32 { return uint32(index) }),
	}
	name, err := d.ReadAttr("name")
	if err != nil {
		return nil, err
	}
	d.name = name

	path := filepath.Join(cfg.DevRoot, deviceName)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	d.file = f
	d.log.Debugf("opened %s (name=%s)", path, name)
	return d, nil
}

// OpenName finds the device exporting name and opens it. When
// cfg.OpenRetryTimeout is set the lookup is retried with backoff until the
// device appears, the timeout elapses or ctx is done.
func OpenName(ctx context.Context, cfg *Config, name string) (*Device, error) {
	if err := VerifyConfig(cfg); err != nil {
		return nil, err
	}
	var deviceName string
	find := func() error {
		dn, err := FindDeviceByName(cfg, name)
		if err != nil {
			if errors.Is(err, ErrDeviceNotFound) {
				return err
			}
			return backoff.Permanent(err)
		}
		deviceName = dn
		return nil
	}

	var err error
	if cfg.OpenRetryTimeout > 0 {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = cfg.OpenRetryInterval
		b.MaxElapsedTime = cfg.OpenRetryTimeout
		log := logger.New("uio", cfg.LogOutput)
		err = backoff.RetryNotify(find, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
			log.Debugf("waiting %v for device %q: %v", next, name, err)
		})
	} else {
		err = find()
	}
	if err != nil {
		return nil, err
	}
	return Open(cfg, deviceName)
}

// Name returns the name exported by the driver.
func (d *Device) Name() string {
	return d.name
}

// DeviceName returns the uioN device name.
func (d *Device) DeviceName() string {
	return d.deviceName
}

func (d *Device) attrPath(name string) string {
	return filepath.Join(d.cfg.SysfsRoot, "class", "uio", d.deviceName, name)
}

// ReadAttr returns the first line of a sysfs class attribute.
func (d *Device) ReadAttr(name string) (string, error) {
	return readFirstLine(d.attrPath(name))
}

// ReadAttrInt parses a sysfs class attribute holding a hex (0x...) or
// decimal integer.
func (d *Device) ReadAttrInt(name string) (uint64, error) {
	path := d.attrPath(name)
	value, err := readFirstLine(path)
	if err != nil {
		return 0, err
	}
	switch {
	case hexValue.MatchString(value):
		return strconv.ParseUint(value[2:], 16, 64)
	case decValue.MatchString(value):
		return strconv.ParseUint(value, 10, 64)
	}
	return 0, &AttrError{Path: path, Value: value}
}

func (d *Device) mapAttr(index int, attr string) (uint64, error) {
	return d.ReadAttrInt(filepath.Join("maps", "map"+strconv.Itoa(index), attr))
}

func (d *Device) MapAddr(index int) (uint64, error)   { return d.mapAttr(index, "addr") }
func (d *Device) MapSize(index int) (uint64, error)   { return d.mapAttr(index, "size") }
func (d *Device) MapOffset(index int) (uint64, error) { return d.mapAttr(index, "offset") }

// MapInfo returns the address, size and offset of memory region index.
func (d *Device) MapInfo(index int) (MapInfo, error) {
	var info MapInfo
	var err error
	if info.Addr, err = d.MapAddr(index); err != nil {
		return MapInfo{}, err
	}
	if info.Size, err = d.MapSize(index); err != nil {
		return MapInfo{}, err
	}
	if info.Offset, err = d.MapOffset(index); err != nil {
		return MapInfo{}, err
	}
	return info, nil
}

// Regs returns a window over memory region index, starting offset bytes into
// the region. A negative length extends the window to the end of the
// mapping. The region is mapped on first use and stays mapped until Close.
func (d *Device) Regs(offset int64, length int, index int) (*mmio.Window, error) {
	m, err := d.mapIndex(index)
	if err != nil {
		return nil, err
	}
	size := int64(len(m.data))
	start := m.pageOffset + offset
	if start < 0 || start > size {
		return nil, fmt.Errorf("%w (index=%d,offset=%d,length=%d)", ErrRegionRange, index, offset, length)
	}
	if length < 0 {
		length = int(size - start)
	} else if start+int64(length) > size {
		return nil, fmt.Errorf("%w (index=%d,offset=%d,length=%d)", ErrRegionRange, index, offset, length)
	}
	return mmio.FromBytes(m.data[start : start+int64(length)]), nil
}

func (d *Device) mapIndex(index int) (*mapping, error) {
	if m, ok := d.maps.Get(index); ok {
		return m, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if m, ok := d.maps.Get(index); ok {
		return m, nil
	}
	if index < 0 {
		return nil, fmt.Errorf("%w (index=%d)", ErrRegionRange, index)
	}

	info, err := d.MapInfo(index)
	if err != nil {
		return nil, err
	}
	pageSize := uint64(unix.Getpagesize())
	size := (info.Size + pageSize - 1) / pageSize * pageSize
	if size == 0 {
		return nil, fmt.Errorf("%w (index=%d,size=0)", ErrRegionRange, index)
	}
	// uio selects region N by mapping at file offset N pages.
	data, err := unix.Mmap(int(d.file.Fd()), int64(index)*int64(pageSize), int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap map%d: %w", index, err)
	}
	m := &mapping{
		data:       data,
		pageOffset: int64((info.Addr + info.Offset) % pageSize),
	}
	d.maps.Set(index, m)
	d.log.Debugf("mapped %s map%d addr=%#x size=%#x", d.deviceName, index, info.Addr, size)
	return m, nil
}

// Map returns a provider of windows over region index.
func (d *Device) Map(index int) *Map {
	return &Map{dev: d, index: index}
}

// Map hands out windows over a single device memory region.
type Map struct {
	dev   *Device
	index int
}

// Window returns a window of length bytes at offset into the region.
func (m *Map) Window(offset int64, length int) (*mmio.Window, error) {
	return m.dev.Regs(offset, length, m.index)
}

// Close unmaps every region and closes the device. Windows obtained from the
// device must not be used afterwards.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	for index, m := range d.maps.Items() {
		if err := unix.Munmap(m.data); err != nil {
			d.log.Warnf("munmap %s map%d: %v", d.deviceName, index, err)
			errs = append(errs, err)
		}
	}
	d.maps.Clear()
	if err := d.file.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func readFirstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	r := bufio.NewReader(f)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
