package palette

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"golang.org/x/image/riff"
)

/*
Microsoft RIFF palette, as written by paint programs:

typedef struct tagLOGPALETTE {
  WORD         palVersion;     // 0x0300
  WORD         palNumEntries;
  PALETTEENTRY palPalEntry[1];
} LOGPALETTE;

typedef struct tagPALETTEENTRY {
  BYTE peRed;
  BYTE peGreen;
  BYTE peBlue;
  BYTE peFlags;
} PALETTEENTRY;
*/

const palVersion = 0x0300

var (
	riffType = riff.FourCC{'R', 'I', 'F', 'F'}
	palType  = riff.FourCC{'P', 'A', 'L', ' '}
	dataType = riff.FourCC{'d', 'a', 't', 'a'}
)

// ReadRIFF appends the colors of every palette chunk in r to p, nested LIST
// chunks included, and drops duplicates. It returns the number of entries
// read before deduplication.
func (p *Palette) ReadRIFF(r io.Reader) (int64, error) {
	formType, rd, err := riff.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("could not open RIFF stream: %w", err)
	} else if formType != palType {
		return 0, fmt.Errorf("unsupported RIFF content type: %s", string(formType[:]))
	}

	var n int64
	err = walkChunks(rd, "PAL", func(ident string, data io.Reader) error {
		entries, err := readEntries(data, ident)
		n += int64(len(entries))
		*p = append(*p, entries...)
		return err
	})
	*p = p.Dedup()
	if err != nil {
		return n, fmt.Errorf("could not load palette: %w", err)
	}
	return n, nil
}

func walkChunks(r *riff.Reader, ident string, visit func(string, io.Reader) error) error {
	for i := 0; ; i++ {
		id, size, data, err := r.Next()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("could not read chunk %s#%d: %w", ident, i, err)
		}

		switch id {
		case riff.LIST:
			listType, list, err := riff.NewListReader(size, data)
			if err != nil {
				return fmt.Errorf("could not read list from chunk %s#%d: %w", ident, i, err)
			} else if listType != palType {
				return fmt.Errorf("chunk %s#%d unsupported list type: %s", ident, i, string(listType[:]))
			}
			if err := walkChunks(list, fmt.Sprintf("%s%d.", ident, i), visit); err != nil {
				return err
			}
		case dataType:
			if err := visit(fmt.Sprintf("%s%d", ident, i), data); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported chunk type in %s#%d: %s", ident, i, string(id[:]))
		}
	}
}

func readEntries(r io.Reader, ident string) (Palette, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, fmt.Errorf("could not read header from chunk %s: %w", ident, err)
	}
	if ver := binary.LittleEndian.Uint16(head[:2]); ver != palVersion {
		return nil, fmt.Errorf("unsupported palette version in chunk %s: %#04x", ident, ver)
	}

	count := int(binary.LittleEndian.Uint16(head[2:]))
	buf := make([]byte, 4*count)
	read, err := io.ReadFull(r, buf)
	res := make(Palette, read/4)
	for i := range res {
		res[i] = Color{R: buf[4*i], G: buf[4*i+1], B: buf[4*i+2]}
	}
	if err != nil {
		return res, fmt.Errorf("could not read color %d/%d from chunk %s: %w", len(res), count, ident, err)
	}
	return res, nil
}

// WriteRIFF writes p as a single palette chunk and returns the number of
// colors written.
func (p Palette) WriteRIFF(w io.Writer) (int64, error) {
	if len(p) > math.MaxUint16 {
		return 0, fmt.Errorf("could not save palette: %d colors do not fit a RIFF palette", len(p))
	}

	chunkSize := 4 + 4*len(p) // palVersion + palNumEntries + 4 bytes/color
	buf := bytes.NewBuffer(make([]byte, 0, 12+8+chunkSize))
	buf.Write(riffType[:])
	buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(4+8+chunkSize)))
	buf.Write(palType[:])
	buf.Write(dataType[:])
	buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(chunkSize)))
	buf.Write(binary.LittleEndian.AppendUint16(nil, palVersion))
	buf.Write(binary.LittleEndian.AppendUint16(nil, uint16(len(p))))
	for _, c := range p {
		buf.Write([]byte{c.R, c.G, c.B, 0x00})
	}

	if _, err := buf.WriteTo(w); err != nil {
		return 0, fmt.Errorf("could not save palette: %w", err)
	}
	return int64(len(p)), nil
}
