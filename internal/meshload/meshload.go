// Package meshload reads Wavefront OBJ instrument meshes.
package meshload

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrAssetLoad is returned when a model file is missing or malformed.
var ErrAssetLoad = errors.New("asset load failure")

// Mesh is one object of a model file.
type Mesh struct {
	Name     string
	Vertices []mgl64.Vec3
	Indices  []uint32 // triangle list
	Material string
	Textures []string // diffuse texture paths, relative to the model file
}

// Empty reports whether the mesh has nothing to draw.
func (m *Mesh) Empty() bool {
	return m == nil || len(m.Indices) == 0
}

// Edges returns each triangle edge once per triangle as index pairs.
func (m *Mesh) Edges() [][2]uint32 {
	edges := make([][2]uint32, 0, len(m.Indices))
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		edges = append(edges, [2]uint32{a, b}, [2]uint32{b, c}, [2]uint32{c, a})
	}
	return edges
}

// Set is every mesh decoded from one file. An empty set is a valid, invisible model.
type Set []*Mesh

// Load decodes the OBJ file at path along with the textures named by its
// material library.
func Load(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model %s: %w: %v", path, ErrAssetLoad, err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	set, mtllib, err := Decode(f, name)
	if err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}

	if mtllib != "" {
		textures, err := loadTextures(filepath.Join(filepath.Dir(path), mtllib))
		if err == nil {
			for _, m := range set {
				m.Textures = textures[m.Material]
			}
		}
	}
	return set, nil
}

// LoadOrEmpty loads path and on failure logs the error and returns an empty set.
func LoadOrEmpty(logger *slog.Logger, path string) Set {
	set, err := Load(path)
	if err != nil {
		logger.Warn("Failed to load model, using empty mesh set", "path", path, "error", err)
		return Set{}
	}
	return set
}

type decoder struct {
	name     string
	vertices []mgl64.Vec3
	set      Set
	current  *Mesh
	mtllib   string
	line     int
}

// Decode parses OBJ text. Meshes without an "o" statement take defaultName.
// The returned string is the mtllib reference, if any.
func Decode(r io.Reader, defaultName string) (Set, string, error) {
	d := &decoder{name: defaultName}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		d.line++
		if err := d.parseLine(scanner.Text()); err != nil {
			return nil, "", fmt.Errorf("line %d: %w: %v", d.line, ErrAssetLoad, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrAssetLoad, err)
	}

	set := make(Set, 0, len(d.set))
	for _, m := range d.set {
		if len(m.Indices) > 0 {
			// face indices are global to the file
			m.Vertices = d.vertices
			set = append(set, m)
		}
	}
	return set, d.mtllib, nil
}

func (d *decoder) parseLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}

	switch fields[0] {
	case "o", "g":
		if len(fields) > 1 {
			d.startMesh(fields[1])
		}
	case "v":
		return d.parseVertex(fields[1:])
	case "f":
		return d.parseFace(fields[1:])
	case "mtllib":
		if len(fields) > 1 {
			d.mtllib = fields[1]
		}
	case "usemtl":
		if len(fields) > 1 {
			d.mesh().Material = fields[1]
		}
	}
	return nil
}

func (d *decoder) startMesh(name string) {
	d.current = &Mesh{Name: name}
	d.set = append(d.set, d.current)
}

func (d *decoder) mesh() *Mesh {
	if d.current == nil {
		d.startMesh(d.name)
	}
	return d.current
}

func (d *decoder) parseVertex(fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("vertex needs 3 coordinates, got %d", len(fields))
	}
	var v mgl64.Vec3
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return fmt.Errorf("vertex coordinate %q: %v", fields[i], err)
		}
		v[i] = f
	}
	d.vertices = append(d.vertices, v)
	return nil
}

func (d *decoder) parseFace(fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("face needs at least 3 vertices, got %d", len(fields))
	}

	idx := make([]uint32, len(fields))
	for i, field := range fields {
		ref, _, _ := strings.Cut(field, "/")
		n, err := strconv.Atoi(ref)
		if err != nil {
			return fmt.Errorf("face index %q: %v", field, err)
		}
		if n < 0 {
			n = len(d.vertices) + n + 1
		}
		if n < 1 || n > len(d.vertices) {
			return fmt.Errorf("face index %d out of range", n)
		}
		idx[i] = uint32(n - 1)
	}

	m := d.mesh()
	// triangle fan
	for i := 1; i+1 < len(idx); i++ {
		m.Indices = append(m.Indices, idx[0], idx[i], idx[i+1])
	}
	return nil
}

// loadTextures maps material names to their diffuse texture maps.
func loadTextures(path string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	textures := make(map[string][]string)
	var current string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "newmtl":
			current = fields[1]
		case "map_Kd":
			textures[current] = append(textures[current], fields[len(fields)-1])
		}
	}
	return textures, scanner.Err()
}
