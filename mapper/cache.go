package mapper

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"image"
)

// Fingerprint identifies the output of mapping a w x h image with cfg. Two
// configurations that prepare to the same values share a fingerprint.
func Fingerprint(cfg Config, w, h int) (uint64, error) {
	cfg, err := cfg.Prepare()
	if err != nil {
		return 0, err
	}

	hash := fnv.New64a()
	err = json.NewEncoder(hash).Encode(struct {
		Config
		W, H int
	}{cfg, w, h})
	if err != nil {
		return 0, err
	}
	return hash.Sum64(), nil
}

// Cache keeps the last mapped buffer of one source image.
type Cache struct {
	key uint64
	buf *image.NRGBA
}

func (c *Cache) Get(key uint64) (*image.NRGBA, bool) {
	if c.buf == nil || c.key != key {
		return nil, false
	}
	return c.buf, true
}

func (c *Cache) Put(key uint64, buf *image.NRGBA) {
	c.key, c.buf = key, buf
}

// Map returns the cached buffer when src was last mapped with an equivalent
// configuration, and maps it otherwise. The boolean reports a cache hit.
func (c *Cache) Map(ctx context.Context, src *image.NRGBA, cfg Config, opts ...Option) (*image.NRGBA, bool, error) {
	if src == nil || src.Rect.Empty() {
		return nil, false, ErrNoImage
	}

	key, err := Fingerprint(cfg, src.Rect.Dx(), src.Rect.Dy())
	if err != nil {
		return nil, false, err
	}
	if buf, ok := c.Get(key); ok {
		return buf, true, nil
	}

	buf, err := Map(ctx, src, cfg, opts...)
	if err != nil {
		return nil, false, err
	}
	c.Put(key, buf)
	return buf, false, nil
}
