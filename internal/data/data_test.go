package data

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephansmit/pvpumpingsystem/internal/pump"
)

func TestLoadEPW(t *testing.T) {
	w, err := LoadEPW(filepath.Join("testdata", "montreal_jan_24h.epw"), EPWOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Montreal Int'l", w.Site.Name)
	assert.Equal(t, "CAN", w.Site.Country)
	assert.Equal(t, 45.47, w.Site.Latitude)
	assert.Equal(t, -73.75, w.Site.Longitude)
	assert.Equal(t, -5.0, w.Site.TZOffsetHours)
	assert.Equal(t, 36.0, w.Site.AltitudeM)

	require.Len(t, w.Records, 24)
	first := w.Records[0]
	assert.Equal(t, 0, first.Start.Hour())
	assert.Equal(t, time.Hour, first.Duration)
	_, offset := first.Start.Zone()
	assert.Equal(t, -5*3600, offset)

	noon := w.Records[11]
	assert.Equal(t, 11, noon.Start.Hour())
	assert.Equal(t, 500.0, noon.DNI)
	assert.Equal(t, 90.0, noon.DHI)
	assert.Equal(t, 271.0, noon.GHI)
	assert.Equal(t, 1414.0, noon.ExtraDNI)
	assert.Equal(t, -5.0, noon.TempAir)
	assert.Equal(t, 3.0, noon.WindSpeed)

	for i, r := range w.Records {
		if i < 8 || i > 15 {
			assert.Zero(t, r.GHI, "record %d", i)
		}
	}
}

func TestParseEPWCoerceYear(t *testing.T) {
	header := "LOCATION,Somewhere,,XXX,src,0,10,20,1,100\n" + strings.Repeat("HDR,0\n", 7)
	row := func(year, month int) string {
		return strings.Join([]string{
			strconv.Itoa(year), strconv.Itoa(month), "1", "1", "60", "x", "20", "10", "50", "101300",
			"0", "0", "0", "0", "0", "0", "0", "0", "0", "0", "0", "2",
		}, ",") + "\n"
	}
	content := header + row(2003, 1) + row(1999, 2)

	_, err := ParseEPW(strings.NewReader(content), EPWOptions{})
	assert.Error(t, err)

	w, err := ParseEPW(strings.NewReader(content), EPWOptions{CoerceYear: 2005})
	require.NoError(t, err)
	require.Len(t, w.Records, 2)
	assert.Equal(t, 2005, w.Records[1].Start.Year())
	assert.Equal(t, time.February, w.Records[1].Start.Month())
	assert.Equal(t, 2.0, w.Records[1].WindSpeed)
}

func TestParseEPWErrors(t *testing.T) {
	_, err := ParseEPW(strings.NewReader(""), EPWOptions{})
	assert.Error(t, err)

	_, err = ParseEPW(strings.NewReader("NOT,A,HEADER\n"), EPWOptions{})
	assert.Error(t, err)

	header := "LOCATION,Somewhere,,XXX,src,0,10,20,1,100\n" + strings.Repeat("HDR,0\n", 7)
	_, err = ParseEPW(strings.NewReader(header), EPWOptions{})
	assert.Error(t, err)

	_, err = ParseEPW(strings.NewReader(header+"2005,1,1,1,60\n"), EPWOptions{})
	assert.Error(t, err)
}

func TestLoadPumpFormats(t *testing.T) {
	yml, err := LoadPump(filepath.Join("testdata", "scb_10_150_120_bl.yaml"))
	require.NoError(t, err)
	txt, err := LoadPump(filepath.Join("testdata", "scb_10_150_120_bl.txt"))
	require.NoError(t, err)

	for _, s := range []pump.Spec{yml, txt} {
		assert.Equal(t, "SCB_10_150_120_BL", s.Name)
		assert.Equal(t, "Shurflo", s.Manufacturer)
		assert.Equal(t, 1097.04, s.Price)
		assert.Equal(t, 12.0, s.LifespanYears)
		assert.Len(t, s.Points, 47)
	}
	assert.Equal(t, yml.Points, txt.Points)

	p, err := pump.New(yml)
	require.NoError(t, err)
	assert.True(t, p.SupportsDirect())

	_, err = LoadPump(filepath.Join("testdata", "modules.csv"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParsePumpTableErrors(t *testing.T) {
	_, err := ParsePumpTable(strings.NewReader("# name: x\nvoltage\thead\n60\t0\n"))
	assert.Error(t, err)

	_, err = ParsePumpTable(strings.NewReader("# price: cheap\nvoltage\thead\tflow\n60\t0\t1\n"))
	assert.Error(t, err)

	_, err = ParsePumpTable(strings.NewReader("voltage\thead\tflow\n"))
	assert.ErrorIs(t, err, pump.ErrInsufficientData)
}

func TestLoadModule(t *testing.T) {
	m, err := LoadModule(filepath.Join("testdata", "kyocera_ku270_6mca.yaml"), "")
	require.NoError(t, err)
	assert.Equal(t, "Kyocera Solar KU270-6MCA", m.Name)
	assert.Equal(t, 60, m.Cells)
	assert.Equal(t, 2.797e-10, m.IORef)
	require.NoError(t, m.Validate())

	fromDB, err := LoadModule(filepath.Join("testdata", "modules.csv"), "Kyocera Solar KU270-6MCA")
	require.NoError(t, err)
	assert.Equal(t, m.ILRef, fromDB.ILRef)
	assert.Equal(t, m.RShRef, fromDB.RShRef)
	assert.Equal(t, m.Cells, fromDB.Cells)

	_, err = LoadModule(filepath.Join("testdata", "modules.csv"), "")
	assert.Error(t, err)
	_, err = LoadModule(filepath.Join("testdata", "modules.csv"), "missing")
	assert.Error(t, err)
	_, err = LoadModule(filepath.Join("testdata", "kyocera_ku270_6mca.yaml"), "other")
	assert.Error(t, err)
	_, err = LoadModule(filepath.Join("testdata", "montreal_jan_24h.epw"), "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestCache(t *testing.T) {
	c := NewCache[int](time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
	c.Prune()
	assert.Zero(t, c.Len())

	c.Set("b", 2)
	c.Clear()
	assert.Zero(t, c.Len())

	disabled := NewCache[int](0)
	disabled.Set("a", 1)
	_, ok = disabled.Get("a")
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Janitor(ctx, time.Millisecond)
}

func TestFileKeyChangesWithContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0644))
	k1, err := FileKey(path)
	require.NoError(t, err)
	k2, err := FileKey(path, "x")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)

	require.NoError(t, os.WriteFile(path, []byte("three"), 0644))
	k3, err := FileKey(path)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	_, err = FileKey(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestLoaderMemoises(t *testing.T) {
	l := NewLoader(time.Hour)
	path := filepath.Join("testdata", "scb_10_150_120_bl.yaml")
	a, err := l.Pump(path)
	require.NoError(t, err)
	a.Points[0].Flow = -1

	b, err := l.Pump(path)
	require.NoError(t, err)
	assert.NotEqual(t, -1.0, b.Points[0].Flow)
	assert.Equal(t, 1, l.pumps.Len())

	w1, err := l.Weather(filepath.Join("testdata", "montreal_jan_24h.epw"), EPWOptions{})
	require.NoError(t, err)
	w2, err := l.Weather(filepath.Join("testdata", "montreal_jan_24h.epw"), EPWOptions{})
	require.NoError(t, err)
	assert.Same(t, w1, w2)

	_, err = l.Module(filepath.Join("testdata", "modules.csv"), "Generic 100W")
	require.NoError(t, err)
}

func TestScanCatalog(t *testing.T) {
	dir := t.TempDir()
	copyTo := func(src, kind string) {
		raw, err := os.ReadFile(filepath.Join("testdata", src))
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, kind), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, kind, src), raw, 0644))
	}
	copyTo("scb_10_150_120_bl.yaml", KindPump)
	copyTo("kyocera_ku270_6mca.yaml", KindModule)
	copyTo("modules.csv", KindModule)
	copyTo("montreal_jan_24h.epw", KindWeather)
	require.NoError(t, os.WriteFile(filepath.Join(dir, KindPump, "broken.yaml"), []byte("points: [oops"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, KindPump, "README.md"), []byte("ignored"), 0644))

	c, err := ScanCatalog(dir, Files{})
	require.NoError(t, err)

	require.Len(t, c.Pumps, 2)
	assert.Equal(t, "broken", c.Pumps[0].ID)
	assert.NotEmpty(t, c.Pumps[0].Error)
	assert.Equal(t, "SCB_10_150_120_BL", c.Pumps[1].Name)
	assert.Equal(t, 47, c.Pumps[1].Points)

	assert.Len(t, c.Modules, 3)
	require.Len(t, c.Weather, 1)
	assert.Equal(t, 24, c.Weather[0].Records)

	out := filepath.Join(dir, "out", "catalog.json")
	require.NoError(t, SaveCatalog(c, out))
	_, err = os.Stat(out)
	assert.NoError(t, err)

	_, err = ScanCatalog(filepath.Join(dir, "nope"), Files{})
	assert.Error(t, err)
}
