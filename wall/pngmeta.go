package wall

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// LayoutKeyword is the zTXt keyword exported images carry the layout under
const LayoutKeyword = "spraywall-holds"

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// IsPNG checks if data starts with PNG magic bytes
func IsPNG(data []byte) bool {
	return len(data) >= 8 && bytes.Equal(data[:8], pngMagic)
}

// EmbedLayout inserts a zTXt chunk holding the layout JSON right after IHDR
func EmbedLayout(pngData []byte, holds HoldCollection) ([]byte, error) {
	if !IsPNG(pngData) || len(pngData) < 33 {
		return nil, fmt.Errorf("not a PNG")
	}
	if holds == nil {
		holds = HoldCollection{}
	}
	payload, err := json.Marshal(holds)
	if err != nil {
		return nil, fmt.Errorf("marshaling layout: %w", err)
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(payload); err != nil {
		return nil, fmt.Errorf("compressing layout: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing layout: %w", err)
	}

	// keyword\0 compression_method compressed_text
	data := make([]byte, 0, len(LayoutKeyword)+2+compressed.Len())
	data = append(data, LayoutKeyword...)
	data = append(data, 0, 0)
	data = append(data, compressed.Bytes()...)

	// IHDR is always the first chunk: 8 magic + 4 len + 4 type + 13 data + 4 crc
	ihdrEnd := 8 + 4 + 4 + int(binary.BigEndian.Uint32(pngData[8:12])) + 4
	if ihdrEnd > len(pngData) {
		return nil, fmt.Errorf("truncated PNG header")
	}

	out := make([]byte, 0, len(pngData)+len(data)+12)
	out = append(out, pngData[:ihdrEnd]...)
	out = appendChunk(out, "zTXt", data)
	out = append(out, pngData[ihdrEnd:]...)
	return out, nil
}

func appendChunk(dst []byte, chunkType string, data []byte) []byte {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	dst = append(dst, length[:]...)

	crc := crc32.NewIEEE()
	crc.Write([]byte(chunkType))
	crc.Write(data)

	dst = append(dst, chunkType...)
	dst = append(dst, data...)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	return append(dst, sum[:]...)
}

// ExtractLayout recovers the layout from an exported PNG. A share link, a
// bare query value or raw JSON are accepted too, so any form a problem was
// handed around in can be decoded.
func ExtractLayout(data []byte) (HoldCollection, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}
	if IsPNG(data) {
		jsonBytes, err := extractLayoutChunk(data)
		if err != nil {
			return nil, fmt.Errorf("extracting PNG zTXt: %w", err)
		}
		return DecodeJSON(jsonBytes)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return DecodeJSON(trimmed)
	}
	return Decode(ParamFromURL(string(trimmed)))
}

// ExtractLayoutFile reads a file and hands it to ExtractLayout
func ExtractLayoutFile(path string) (HoldCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ExtractLayout(data)
}

// extractLayoutChunk walks the PNG chunks (length, type, data, CRC) for the
// zTXt chunk with our keyword
func extractLayoutChunk(data []byte) ([]byte, error) {
	pos := 8
	for pos+12 <= len(data) {
		chunkLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		chunkType := string(data[pos : pos+4])
		pos += 4

		if chunkLen < 0 || pos+chunkLen+4 > len(data) {
			return nil, fmt.Errorf("truncated PNG chunk")
		}

		if chunkType == "zTXt" {
			keyword, text, err := parseZTXt(data[pos : pos+chunkLen])
			if err != nil {
				return nil, err
			}
			if keyword == LayoutKeyword {
				return text, nil
			}
		}

		pos += chunkLen + 4
		if chunkType == "IEND" {
			break
		}
	}
	return nil, fmt.Errorf("no %s chunk found in PNG", LayoutKeyword)
}

// parseZTXt splits keyword\0compression_method compressed_text
func parseZTXt(data []byte) (string, []byte, error) {
	nullIdx := bytes.IndexByte(data, 0)
	if nullIdx == -1 {
		return "", nil, fmt.Errorf("no null terminator in zTXt chunk")
	}
	if nullIdx+1 >= len(data) {
		return "", nil, fmt.Errorf("truncated zTXt chunk")
	}
	if method := data[nullIdx+1]; method != 0 {
		return "", nil, fmt.Errorf("unsupported compression method: %d", method)
	}
	text, err := inflateZlib(data[nullIdx+2:])
	if err != nil {
		return "", nil, err
	}
	return string(data[:nullIdx]), text, nil
}

func inflateZlib(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating zlib reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decompressing zlib data: %w", err)
	}
	return decompressed, nil
}
