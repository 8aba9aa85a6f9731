package archive

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/v-morello/clfd/cube"
	"github.com/v-morello/clfd/mask"
)

// NPY reads and writes folded data stored as 3-dimensional NumPy ".npy"
// arrays in (subint, chan, bin) order. The format carries no frequency
// table, so loaded cubes get channel indices as frequencies, and no weights
// array, so masked profiles are zero-filled on save.
type NPY struct{}

// Load reads a rank-3 little-endian float32 or float64 npy file.
func (NPY) Load(path string) (*cube.Cube, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	defer f.Close()

	shape, data, err := readNPY(f)
	if err != nil {
		return nil, fmt.Errorf("archive: reading %s: %w", path, err)
	}

	if len(shape) != 3 {
		return nil, fmt.Errorf("archive: %s: want a 3-dimensional array, got rank %d", path, len(shape))
	}

	freqs := make([]float64, shape[1])
	for i := range freqs {
		freqs[i] = float64(i)
	}

	return cube.New(data, shape[0], shape[1], shape[2], freqs)
}

// Save writes the raw data of the cube as a rank-3 little-endian float32
// npy file, the precision the format conventionally stores folded data in.
func (NPY) Save(path string, c *cube.Cube) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	shape := []int{c.NumSubints(), c.NumChans(), c.NumBins()}

	if err := writeNPY(f, shape, c.Raw()); err != nil {
		f.Close()
		return fmt.Errorf("archive: writing %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("archive: writing %s: %w", path, err)
	}

	return nil
}

// ApplyProfileMask returns a new cube with every flagged profile zero-filled.
func (NPY) ApplyProfileMask(c *cube.Cube, profMask [][]bool) (*cube.Cube, error) {
	numSubints := c.NumSubints()
	numChans := c.NumChans()
	numBins := c.NumBins()

	if len(profMask) != numSubints {
		return nil, fmt.Errorf("%w: mask has %d rows for %d sub-integrations",
			cube.ErrShape, len(profMask), numSubints)
	}

	data := append([]float64(nil), c.Raw()...)

	for s, row := range profMask {
		if len(row) != numChans {
			return nil, fmt.Errorf("%w: mask row has %d entries for %d channels",
				cube.ErrShape, len(row), numChans)
		}

		for ch, bad := range row {
			if !bad {
				continue
			}

			start := (s*numChans + ch) * numBins
			for i := start; i < start+numBins; i++ {
				data[i] = 0
			}
		}
	}

	return cube.New(data, numSubints, numChans, numBins, c.Frequencies())
}

// ApplySpikes returns a new cube where every flagged time-phase cell has its
// valid-channel samples overwritten with the replacement values, converted
// back to raw scale: raw = normalized*scale + baseline. c must be the cube
// the spike result was derived from, so that scale and baselines match.
func (NPY) ApplySpikes(c *cube.Cube, res *mask.SpikeResult) (*cube.Cube, error) {
	numSubints := c.NumSubints()
	numChans := c.NumChans()
	numBins := c.NumBins()

	if len(res.Mask) != numSubints {
		return nil, fmt.Errorf("%w: mask has %d rows for %d sub-integrations",
			cube.ErrShape, len(res.Mask), numSubints)
	}

	data := append([]float64(nil), c.Raw()...)
	scale := c.Scale()

	for s, row := range res.Mask {
		if len(row) != numBins {
			return nil, fmt.Errorf("%w: mask row has %d entries for %d phase bins",
				cube.ErrShape, len(row), numBins)
		}

		for p, bad := range row {
			if !bad {
				continue
			}

			for _, ch := range res.ValidChans {
				raw := res.Replacement(s, ch)*scale + c.Baseline(s, ch)
				data[(s*numChans+ch)*numBins+p] = raw
			}
		}
	}

	return cube.New(data, numSubints, numChans, numBins, c.Frequencies())
}

const npyMagic = "\x93NUMPY"

// readNPY parses an npy stream: magic, version, header dict, raw samples.
// Only C-ordered little-endian float32/float64 data is accepted.
func readNPY(r io.Reader) (shape []int, data []float64, err error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, nil, fmt.Errorf("reading magic: %w", err)
	}

	if string(magic[:6]) != npyMagic {
		return nil, nil, fmt.Errorf("invalid magic %q", magic[:6])
	}

	major := magic[6]

	var headerLen int

	switch major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, nil, fmt.Errorf("reading header length: %w", err)
		}

		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, nil, fmt.Errorf("reading header length: %w", err)
		}

		headerLen = int(n)
	default:
		return nil, nil, fmt.Errorf("unsupported npy version %d.%d", major, magic[7])
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	descr, fortran, shape, err := parseNPYHeader(string(header))
	if err != nil {
		return nil, nil, err
	}

	if fortran {
		return nil, nil, fmt.Errorf("fortran-ordered arrays are not supported")
	}

	var itemSize int

	switch descr {
	case "<f4":
		itemSize = 4
	case "<f8":
		itemSize = 8
	default:
		return nil, nil, fmt.Errorf("unsupported dtype %q, want '<f4' or '<f8'", descr)
	}

	count := 1
	for _, dim := range shape {
		if dim <= 0 {
			return nil, nil, fmt.Errorf("invalid shape dimension %d", dim)
		}

		count *= dim
	}

	raw := make([]byte, count*itemSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, nil, fmt.Errorf("reading %d samples: %w", count, err)
	}

	data = make([]float64, count)

	switch itemSize {
	case 4:
		for i := range data {
			bits := binary.LittleEndian.Uint32(raw[i*4:])
			data[i] = float64(math.Float32frombits(bits))
		}
	case 8:
		for i := range data {
			bits := binary.LittleEndian.Uint64(raw[i*8:])
			data[i] = math.Float64frombits(bits)
		}
	}

	return shape, data, nil
}

// parseNPYHeader extracts descr, fortran_order and shape from the python
// dict literal in an npy header.
func parseNPYHeader(header string) (descr string, fortran bool, shape []int, err error) {
	descr, err = headerString(header, "descr")
	if err != nil {
		return "", false, nil, err
	}

	switch {
	case strings.Contains(header, "'fortran_order': False"):
		fortran = false
	case strings.Contains(header, "'fortran_order': True"):
		fortran = true
	default:
		return "", false, nil, fmt.Errorf("header missing fortran_order")
	}

	open := strings.Index(header, "(")
	close_ := strings.Index(header, ")")

	if open < 0 || close_ < open {
		return "", false, nil, fmt.Errorf("header missing shape tuple")
	}

	for _, field := range strings.Split(header[open+1:close_], ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		dim, err := strconv.Atoi(field)
		if err != nil {
			return "", false, nil, fmt.Errorf("invalid shape entry %q", field)
		}

		shape = append(shape, dim)
	}

	return descr, fortran, shape, nil
}

func headerString(header, key string) (string, error) {
	marker := "'" + key + "':"

	i := strings.Index(header, marker)
	if i < 0 {
		return "", fmt.Errorf("header missing %s", key)
	}

	rest := header[i+len(marker):]

	start := strings.Index(rest, "'")
	if start < 0 {
		return "", fmt.Errorf("header missing %s value", key)
	}

	end := strings.Index(rest[start+1:], "'")
	if end < 0 {
		return "", fmt.Errorf("header missing %s value", key)
	}

	return rest[start+1 : start+1+end], nil
}

// writeNPY writes data as a version 1.0 little-endian float32 npy stream.
func writeNPY(w io.Writer, shape []int, data []float64) error {
	dims := make([]string, len(shape))
	for i, dim := range shape {
		dims[i] = strconv.Itoa(dim)
	}

	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%s), }",
		strings.Join(dims, ", "))

	// Pad so the data section starts on a 64-byte boundary, newline last.
	total := len(npyMagic) + 2 + 2 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}

	header += "\n"

	if _, err := io.WriteString(w, npyMagic); err != nil {
		return err
	}

	if _, err := w.Write([]byte{1, 0}); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}

	if _, err := io.WriteString(w, header); err != nil {
		return err
	}

	buf := make([]byte, 4*len(data))
	for i, x := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(x)))
	}

	_, err := w.Write(buf)

	return err
}
