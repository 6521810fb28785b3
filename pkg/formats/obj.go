package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshbuilder/pkg/encoding"
)

// OBJ format errors.
var (
	ErrMalformedLine = errors.New("malformed OBJ line")
)

// maxOBJLineSize bounds a single source line.
const maxOBJLineSize = 1 << 20

// objIgnored lists directives that are recognised but carry no data for the
// vertex and index buffers.
var objIgnored = map[string]bool{
	"mtllib": true,
	"usemtl": true,
	"o":      true,
	"g":      true,
	"s":      true,
}

// OBJFace is a face directive kept for assembly.
type OBJFace struct {
	Line    int      // 1-based source line number
	Text    string   // Raw line as written in the source
	Corners []string // Corner tokens, e.g. "1/2/3"

	// Attribute counts defined before this line (for relative indices).
	PositionCount int
	TexCoordCount int
	NormalCount   int
}

// OBJ holds the attribute streams and face directives of a Wavefront OBJ file.
type OBJ struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	TexCoords []mgl32.Vec2
	Faces     []OBJFace

	// Unknown counts lines whose keyword the parser does not know, by keyword.
	Unknown map[string]int
}

// ParseOBJ parses a Wavefront OBJ stream.
func ParseOBJ(r io.Reader) (*OBJ, error) {
	obj := &OBJ{Unknown: make(map[string]int)}

	scanner := bufio.NewScanner(encoding.NewSourceReader(r))
	scanner.Buffer(make([]byte, 64*1024), maxOBJLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		text := scanner.Text()
		fields := strings.Fields(text)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		keyword, values := fields[0], fields[1:]
		switch {
		case objIgnored[keyword]:
			continue
		case keyword == "vn":
			n, err := parseFloats(values, 3)
			if err != nil {
				return nil, wrapLine(err, lineNum, keyword)
			}
			obj.Normals = append(obj.Normals, mgl32.Vec3{n[0], n[1], n[2]})
		case keyword == "vt":
			uv, err := parseFloats(values, 2)
			if err != nil {
				return nil, wrapLine(err, lineNum, keyword)
			}
			obj.TexCoords = append(obj.TexCoords, mgl32.Vec2{uv[0], uv[1]})
		case keyword == "v":
			p, err := parseFloats(values, 3)
			if err != nil {
				return nil, wrapLine(err, lineNum, keyword)
			}
			obj.Positions = append(obj.Positions, mgl32.Vec3{p[0], p[1], p[2]})
		case keyword == "f":
			obj.Faces = append(obj.Faces, OBJFace{
				Line:          lineNum,
				Text:          text,
				Corners:       values,
				PositionCount: len(obj.Positions),
				TexCoordCount: len(obj.TexCoords),
				NormalCount:   len(obj.Normals),
			})
		default:
			obj.Unknown[keyword]++
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ source after line %d: %w", lineNum, err)
	}

	return obj, nil
}

// ParseOBJFile parses an OBJ file from disk.
func ParseOBJFile(path string) (*OBJ, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening OBJ file: %w", err)
	}
	defer f.Close()

	return ParseOBJ(f)
}

// parseFloats parses the first count values as float32. Extra values (such
// as an optional w component) are ignored. Values beyond float32 range pass
// through as ±Inf.
func parseFloats(values []string, count int) ([]float32, error) {
	if len(values) < count {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrMalformedLine, count, len(values))
	}

	out := make([]float32, count)
	for i := 0; i < count; i++ {
		f, err := strconv.ParseFloat(values[i], 32)
		// Out of float32 range: f is already the signed infinity
		if errors.Is(err, strconv.ErrRange) {
			err = nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: value %d %q is not a number", ErrMalformedLine, i+1, values[i])
		}
		out[i] = float32(f)
	}
	return out, nil
}

func wrapLine(err error, lineNum int, keyword string) error {
	return fmt.Errorf("line %d (%s): %w", lineNum, keyword, err)
}

// FaceCount returns the number of face directives.
func (o *OBJ) FaceCount() int {
	return len(o.Faces)
}
