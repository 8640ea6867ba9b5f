package geo

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// nameFieldCandidates are the suburb name attributes seen across ABS
// and council boundary releases, in preference order.
var nameFieldCandidates = []string{"SAL_NAME21", "SSC_NAME", "LOC_NAME", "NAME"}

// LoadSuburbs reads a suburb boundary shapefile into an Index. When
// nameField is empty the loader picks the first known candidate field.
func LoadSuburbs(shpPath, nameField string) (*Index, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrap(err, "geo: open shapefile")
	}
	defer func() { _ = reader.Close() }()

	nameIdx := -1
	if nameField != "" {
		nameIdx = fieldIndex(reader, nameField)
		if nameIdx < 0 {
			return nil, eris.Errorf("geo: field %q not found in shapefile", nameField)
		}
	} else {
		for _, candidate := range nameFieldCandidates {
			if nameIdx = fieldIndex(reader, candidate); nameIdx >= 0 {
				nameField = candidate
				break
			}
		}
		if nameIdx < 0 {
			return nil, eris.Errorf("geo: no suburb name field found (tried %s)", strings.Join(nameFieldCandidates, ", "))
		}
	}

	idx := NewIndex()
	skipped := 0
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}

		name := strings.TrimSpace(reader.Attribute(nameIdx))
		if name == "" {
			skipped++
			continue
		}

		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}
		idx.Add(name, mp)
	}

	zap.L().Info("geo: suburb boundaries loaded",
		zap.String("path", shpPath),
		zap.String("name_field", nameField),
		zap.Int("suburbs", idx.Len()),
		zap.Int("skipped", skipped),
	)
	return idx, nil
}

// fieldIndex returns the index of a named attribute, or -1.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// polygonToMultiPolygon converts a shapefile polygon, treating each
// part as a ring of one polygon.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("geo: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("geo: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
