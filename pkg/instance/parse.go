package instance

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/siteplan/pkg/errors"
)

// ReadFile parses the instance file at path. The instance is named after the
// file's base name without extension.
func ReadFile(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open instance %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open instance %s", path)
	}
	defer f.Close()

	inst, err := Parse(f)
	if err != nil {
		return nil, err
	}
	inst.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return inst, nil
}

// Parse reads an instance in either the older (depot line) or newer layout.
// Any malformed line fails the whole parse; no partial instance is returned.
func Parse(r io.Reader) (*Instance, error) {
	var lines []numberedLine
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		if fields := strings.Fields(sc.Text()); len(fields) > 0 {
			lines = append(lines, numberedLine{n: n, fields: fields})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInstance, err, "read instance")
	}
	if len(lines) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInstance, "empty instance")
	}

	header := lines[0]
	if len(header.fields) != 2 {
		return nil, header.errorf("header must be \"<N> <M>\", got %d fields", len(header.fields))
	}
	n, err := header.intAt(0, "community count")
	if err != nil {
		return nil, err
	}
	m, err := header.intAt(1, "center count")
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, header.errorf("community count must be at least 1, got %d", n)
	}
	if m < 1 {
		return nil, header.errorf("center count must be at least 1, got %d", m)
	}

	inst := &Instance{MaxCenters: m}
	body := lines[1:]
	if len(body) > 0 && body[0].fields[0] == "0" {
		depot := body[0]
		if len(depot.fields) != 3 {
			return nil, depot.errorf("depot line must be \"0 <x> <y>\", got %d fields", len(depot.fields))
		}
		x, err := depot.floatAt(1, "depot x")
		if err != nil {
			return nil, err
		}
		y, err := depot.floatAt(2, "depot y")
		if err != nil {
			return nil, err
		}
		inst.Depot = &Point{X: x, Y: y}
		body = body[1:]
	}

	if len(body) != n {
		return nil, errors.New(errors.ErrCodeInvalidInstance, "expected %d community lines, got %d", n, len(body))
	}

	inst.Communities = make([]Community, 0, n)
	for i, ln := range body {
		c, capacity, err := ln.community()
		if err != nil {
			return nil, err
		}
		if c.Index != i {
			return nil, ln.errorf("expected community index %d, got %d", i+1, c.Index+1)
		}
		if i == 0 {
			inst.Capacity = capacity
		}
		inst.Communities = append(inst.Communities, c)
	}

	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst, nil
}

// Write serializes the instance in the newer layout (no depot line) unless a
// depot was parsed, in which case the older layout is kept.
func (inst *Instance) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", inst.N(), inst.MaxCenters)
	if inst.Depot != nil {
		fmt.Fprintf(bw, "0 %s %s\n", formatFloat(inst.Depot.X), formatFloat(inst.Depot.Y))
	}
	for _, c := range inst.Communities {
		fmt.Fprintf(bw, "%d %s %s %d %d\n", c.Index+1,
			formatFloat(c.Location.X), formatFloat(c.Location.Y), inst.Capacity, c.Population)
	}
	return bw.Flush()
}

// Canonical returns the instance in its written form. Two instances with the
// same communities, limits and depot produce identical bytes.
func (inst *Instance) Canonical() []byte {
	var buf bytes.Buffer
	_ = inst.Write(&buf)
	return buf.Bytes()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

type numberedLine struct {
	n      int
	fields []string
}

func (l numberedLine) errorf(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidInstance, "line %d: %s", l.n, fmt.Sprintf(format, args...))
}

func (l numberedLine) intAt(i int, what string) (int, error) {
	v, err := strconv.Atoi(l.fields[i])
	if err != nil {
		return 0, l.errorf("invalid %s %q", what, l.fields[i])
	}
	return v, nil
}

func (l numberedLine) floatAt(i int, what string) (float64, error) {
	v, err := strconv.ParseFloat(l.fields[i], 64)
	if err != nil {
		return 0, l.errorf("invalid %s %q", what, l.fields[i])
	}
	return v, nil
}

func (l numberedLine) community() (Community, int, error) {
	if len(l.fields) != 5 {
		return Community{}, 0, l.errorf("community line must have 5 fields, got %d", len(l.fields))
	}
	idx, err := l.intAt(0, "index")
	if err != nil {
		return Community{}, 0, err
	}
	x, err := l.floatAt(1, "x")
	if err != nil {
		return Community{}, 0, err
	}
	y, err := l.floatAt(2, "y")
	if err != nil {
		return Community{}, 0, err
	}
	capacity, err := l.intAt(3, "capacity")
	if err != nil {
		return Community{}, 0, err
	}
	pop, err := l.intAt(4, "population")
	if err != nil {
		return Community{}, 0, err
	}
	return Community{Index: idx - 1, Location: Point{X: x, Y: y}, Population: pop}, capacity, nil
}
