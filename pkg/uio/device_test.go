//go:build linux

package uio

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/plugin-mmio/pkg/mmio"
)

type fakeMap struct {
	addr, size, offset string
}

// fakeUIO lays out <root>/sys/class/uio/<dev> and a regular file standing in
// for <root>/dev/<dev>, sized to hold one page per map.
type fakeUIO struct {
	t    *testing.T
	cfg  *Config
	page int
}

func newFakeUIO(t *testing.T) *fakeUIO {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.SysfsRoot = filepath.Join(root, "sys")
	cfg.DevRoot = filepath.Join(root, "dev")
	cfg.OpenRetryTimeout = 0
	cfg.LogOutput = io.Discard
	require.NoError(t, os.MkdirAll(cfg.DevRoot, 0755))
	return &fakeUIO{t: t, cfg: cfg, page: os.Getpagesize()}
}

func (f *fakeUIO) writeAttr(dev, name, value string) {
	path := filepath.Join(f.cfg.SysfsRoot, "class", "uio", dev, name)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(f.t, os.WriteFile(path, []byte(value+"\n"), 0644))
}

func (f *fakeUIO) addDevice(dev, name string, maps ...fakeMap) {
	f.prepare(dev, maps...)
	f.writeAttr(dev, "name", name)
}

// prepare creates everything but the name attribute, which is what
// FindDeviceByName looks for.
func (f *fakeUIO) prepare(dev string, maps ...fakeMap) {
	for i, m := range maps {
		prefix := filepath.Join("maps", "map"+strconv.Itoa(i))
		f.writeAttr(dev, filepath.Join(prefix, "addr"), m.addr)
		f.writeAttr(dev, filepath.Join(prefix, "size"), m.size)
		f.writeAttr(dev, filepath.Join(prefix, "offset"), m.offset)
	}
	require.NoError(f.t, os.WriteFile(f.devPath(dev), make([]byte, (len(maps)+1)*f.page), 0644))
}

func (f *fakeUIO) devPath(dev string) string {
	return filepath.Join(f.cfg.DevRoot, dev)
}

func (f *fakeUIO) devBytes(dev string) []byte {
	b, err := os.ReadFile(f.devPath(dev))
	require.NoError(f.t, err)
	return b
}

var gpioMaps = []fakeMap{
	{addr: "0x43c00000", size: "0x1000", offset: "0x0"},
	{addr: "0x43c10010", size: "256", offset: "0"},
}

func TestFindDeviceByName(t *testing.T) {
	f := newFakeUIO(t)
	f.addDevice("uio0", "axi-dma", gpioMaps...)
	f.addDevice("uio3", "axi-gpio", gpioMaps...)

	dev, err := FindDeviceByName(f.cfg, "axi-gpio")
	require.NoError(t, err)
	assert.Equal(t, "uio3", dev)

	_, err = FindDeviceByName(f.cfg, "nope")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestOpenAndAttributes(t *testing.T) {
	f := newFakeUIO(t)
	f.addDevice("uio1", "axi-gpio", gpioMaps...)
	f.writeAttr("uio1", "version", "devicetree")

	d, err := Open(f.cfg, "uio1")
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, "axi-gpio", d.Name())
	assert.Equal(t, "uio1", d.DeviceName())

	v, err := d.ReadAttr("version")
	require.NoError(t, err)
	assert.Equal(t, "devicetree", v)

	info, err := d.MapInfo(0)
	require.NoError(t, err)
	assert.Equal(t, MapInfo{Addr: 0x43c00000, Size: 0x1000}, info)

	info, err = d.MapInfo(1)
	require.NoError(t, err)
	assert.Equal(t, MapInfo{Addr: 0x43c10010, Size: 256}, info)

	_, err = d.ReadAttrInt("version")
	var aerr *AttrError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "devicetree", aerr.Value)

	_, err = d.MapInfo(7)
	assert.Error(t, err)
}

func TestOpenMissingDevice(t *testing.T) {
	f := newFakeUIO(t)
	_, err := Open(f.cfg, "uio9")
	assert.Error(t, err)

	f.writeAttr("uio2", "name", "sysfs-only")
	_, err = Open(f.cfg, "uio2")
	assert.Error(t, err, "no device node")
}

func TestRegsMapsRegionAtPageIndex(t *testing.T) {
	f := newFakeUIO(t)
	f.addDevice("uio0", "axi-gpio", gpioMaps...)

	d, err := Open(f.cfg, "uio0")
	require.NoError(t, err)

	regs, err := d.Regs(0, -1, 0)
	require.NoError(t, err)
	assert.Equal(t, f.page, regs.Len())
	require.NoError(t, regs.WriteUint32(0x08, 0xA5A55A5A))

	// map1 starts 0x10 into its page, which is file page 1.
	regs1, err := d.Regs(4, 16, 1)
	require.NoError(t, err)
	assert.Equal(t, 16, regs1.Len())
	require.NoError(t, regs1.WriteUint16(2, 0xBEEF))

	require.NoError(t, d.Close())

	raw := f.devBytes("uio0")
	assert.Equal(t, uint32(0xA5A55A5A), binary.NativeEndian.Uint32(raw[0x08:]))
	at := f.page + 0x10 + 4 + 2
	assert.Equal(t, uint16(0xBEEF), binary.NativeEndian.Uint16(raw[at:]))
}

func TestRegsRangeAndCache(t *testing.T) {
	f := newFakeUIO(t)
	f.addDevice("uio0", "axi-gpio", gpioMaps...)
	d, err := Open(f.cfg, "uio0")
	require.NoError(t, err)
	defer d.Close()

	a, err := d.Regs(0x100, 0x10, 0)
	require.NoError(t, err)
	b, err := d.Map(0).Window(0x100, 0x10)
	require.NoError(t, err)
	assert.Equal(t, a.Base(), b.Base())

	_, err = d.Regs(0, f.page+1, 0)
	assert.ErrorIs(t, err, ErrRegionRange)
	_, err = d.Regs(-1, 4, 0)
	assert.ErrorIs(t, err, ErrRegionRange)
	_, err = d.Regs(0, 4, -1)
	assert.ErrorIs(t, err, ErrRegionRange)

	// The window itself still only checks its own bounds.
	_, err = a.ReadUint32(0x10)
	assert.ErrorIs(t, err, mmio.ErrOutOfBounds)
}

func TestClosedDevice(t *testing.T) {
	f := newFakeUIO(t)
	f.addDevice("uio0", "axi-gpio", gpioMaps...)
	d, err := Open(f.cfg, "uio0")
	require.NoError(t, err)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	_, err = d.Regs(0, 4, 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenNameWaitsForDevice(t *testing.T) {
	f := newFakeUIO(t)
	f.cfg.OpenRetryTimeout = 5 * time.Second
	f.cfg.OpenRetryInterval = 10 * time.Millisecond

	f.prepare("uio4", gpioMaps...)
	namePath := filepath.Join(f.cfg.SysfsRoot, "class", "uio", "uio4", "name")
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(namePath, []byte("late-dev\n"), 0644)
	}()

	d, err := OpenName(context.Background(), f.cfg, "late-dev")
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, "uio4", d.DeviceName())
}

func TestOpenNameWithoutRetry(t *testing.T) {
	f := newFakeUIO(t)
	_, err := OpenName(context.Background(), f.cfg, "absent")
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	f.cfg.OpenRetryTimeout = time.Minute
	f.cfg.OpenRetryInterval = 10 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = OpenName(ctx, f.cfg, "absent")
	assert.Error(t, err)
}

func TestIRQControlAndWait(t *testing.T) {
	f := newFakeUIO(t)
	f.addDevice("uio0", "irq-dev", gpioMaps...)

	// A regular file is always readable; the count after the 4-byte
	// IRQOn write stands in for the driver's reply.
	raw := f.devBytes("uio0")
	binary.NativeEndian.PutUint32(raw[4:], 9)
	require.NoError(t, os.WriteFile(f.devPath("uio0"), raw, 0644))

	d, err := Open(f.cfg, "uio0")
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.IRQOn())
	count, ok, err := d.WaitIRQ(time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(9), count)

	require.NoError(t, d.IRQOff())
	raw = f.devBytes("uio0")
	assert.Equal(t, uint32(1), binary.NativeEndian.Uint32(raw[0:4]))
	assert.Equal(t, uint32(0), binary.NativeEndian.Uint32(raw[8:12]))
}
