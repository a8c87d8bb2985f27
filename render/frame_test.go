package render

import (
	"bytes"
	"testing"
)

func TestStripRowPaddingIdentityWhenAligned(t *testing.T) {
	width, height := uint32(64), uint32(4)
	unpadded := width * 4
	padded := unpadded // already 256-byte aligned at width=64
	data := fillSequential(int(padded) * int(height))

	out := stripRowPadding(data, width, height, unpadded, padded)
	if !bytes.Equal(out, data) {
		t.Fatal("expected identity copy when no padding present")
	}
}

func TestStripRowPaddingAcrossWidths(t *testing.T) {
	widths := []uint32{1, 2, 63, 64, 65, 1280, 1920, 3840}
	height := uint32(3)

	for _, w := range widths {
		unpadded := w * 4
		padded := (unpadded + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)

		padBuf := make([]byte, int(padded)*int(height))
		for row := uint32(0); row < height; row++ {
			rowData := fillSequential(int(unpadded))
			for i, b := range rowData {
				rowData[i] = b ^ byte(row) // vary content per row
			}
			copy(padBuf[int(row)*int(padded):], rowData)
		}

		out := stripRowPadding(padBuf, w, height, unpadded, padded)
		if uint32(len(out)) != unpadded*height {
			t.Fatalf("width %d: expected %d bytes, got %d", w, unpadded*height, len(out))
		}
		for row := uint32(0); row < height; row++ {
			gotRow := out[row*unpadded : (row+1)*unpadded]
			wantRow := padBuf[row*padded : row*padded+unpadded]
			if !bytes.Equal(gotRow, wantRow) {
				t.Fatalf("width %d row %d: stripped row does not match source row", w, row)
			}
		}
	}
}

func fillSequential(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}
