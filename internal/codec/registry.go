package codec

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/AnyUserName/blpkit/internal/blp"
	"github.com/AnyUserName/blpkit/internal/catalog"
)

// Pair is the codec that reads the source and the codec that writes the
// artifact for one direction.
type Pair struct {
	Source Codec
	Target Codec
}

// Registry maps conversion directions to codec pairs.
type Registry struct {
	pairs map[catalog.Direction]Pair
}

// NewRegistry wires the real codecs: BLP→PNG and image→BLP.
func NewRegistry() *Registry {
	return NewRegistryWith(BLPCodec{}, ImageCodec{})
}

// NewRegistryWith wires custom compressed and raster codecs.
func NewRegistryWith(compressed, rasterCodec Codec) *Registry {
	return &Registry{pairs: map[catalog.Direction]Pair{
		catalog.ToRaster:     {Source: compressed, Target: rasterCodec},
		catalog.ToCompressed: {Source: rasterCodec, Target: compressed},
	}}
}

// Get returns the pair for d.
func (r *Registry) Get(d catalog.Direction) (Pair, bool) {
	p, ok := r.pairs[d]
	return p, ok
}

// ArtifactDecoder returns the codec that reads back what Target wrote.
// Analysis of a PNG artifact decodes PNG; of a BLP artifact decodes BLP.
func (r *Registry) ArtifactDecoder(d catalog.Direction) (Codec, bool) {
	p, ok := r.pairs[d]
	if !ok {
		return nil, false
	}
	return p.Target, true
}

// String returns a summary of the wired codecs.
func (r *Registry) String() string {
	var parts []string
	for _, d := range []catalog.Direction{catalog.ToRaster, catalog.ToCompressed} {
		if p, ok := r.pairs[d]; ok {
			parts = append(parts, fmt.Sprintf("%s (%s→%s)", d, p.Source.Name(), p.Target.Name()))
		}
	}
	if len(parts) == 0 {
		return "no codecs available"
	}
	return "codecs: " + strings.Join(parts, ", ")
}

// DetectDirection sniffs data. BLP magic means the file is decoded to PNG;
// any decodable image means it is encoded to BLP.
func DetectDirection(data []byte) (catalog.Direction, error) {
	if blp.IsBLP(data) {
		return catalog.ToRaster, nil
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return catalog.ToCompressed, nil
	}
	return 0, ErrUnknownFormat
}
