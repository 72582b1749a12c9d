package imagefile

import (
	"encoding/binary"
)

// DetectDPI extracts the horizontal resolution from raw image bytes.
// Supports JPEG (JFIF APP0 density) and PNG (pHYs chunk). Resolution comes
// as an X/Y pair in both formats; the X component wins when they differ.
// Returns 0 when no usable resolution is present.
func DetectDPI(data []byte) float64 {
	if len(data) < 8 {
		return 0
	}
	if data[0] == 0xFF && data[1] == 0xD8 {
		return jpegDPI(data)
	}
	if bytes8IsPNG(data) {
		return pngDPI(data)
	}
	return 0
}

func bytes8IsPNG(data []byte) bool {
	sig := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	for i, b := range sig {
		if data[i] != b {
			return false
		}
	}
	return true
}

func jpegDPI(data []byte) float64 {
	i := 2
	for i+4 < len(data) {
		if data[i] != 0xFF {
			break
		}
		marker := data[i+1]
		if marker == 0xDA || marker == 0xD9 { // image data starts, no more metadata
			break
		}
		segLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if marker == 0xE0 && segLen >= 14 { // APP0 (JFIF)
			seg := data[i+4:]
			if len(seg) >= 10 && string(seg[0:5]) == "JFIF\x00" {
				units := seg[7]
				xd := float64(binary.BigEndian.Uint16(seg[8:10]))
				if units == 1 { // dots per inch
					return xd
				}
				if units == 2 { // dots per cm
					return xd * 2.54
				}
			}
		}
		i += 2 + segLen
	}
	return 0
}

func pngDPI(data []byte) float64 {
	i := 8
	for i+8 <= len(data) {
		chunkLen := int(binary.BigEndian.Uint32(data[i : i+4]))
		chunkType := string(data[i+4 : i+8])
		if chunkType == "pHYs" && chunkLen >= 9 && i+8+9 <= len(data) {
			body := data[i+8:]
			xppu := binary.BigEndian.Uint32(body[0:4])
			unit := body[8]
			if unit == 1 { // pixels per metre
				return float64(xppu) * 0.0254
			}
			return 0
		}
		if chunkType == "IDAT" || chunkType == "IEND" {
			break
		}
		i += 8 + chunkLen + 4 // header + data + crc
	}
	return 0
}

// jpegOrientation returns the EXIF orientation tag (1–8) from a JPEG's
// APP1 segment, or 0 when absent. PNG carries no orientation.
func jpegOrientation(data []byte) int {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0
	}
	i := 2
	for i+4 < len(data) {
		if data[i] != 0xFF {
			break
		}
		marker := data[i+1]
		if marker == 0xDA || marker == 0xD9 {
			break
		}
		segLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if marker == 0xE1 && segLen >= 8 {
			seg := data[i+4 : min(i+2+segLen, len(data))]
			if len(seg) >= 6 && string(seg[0:6]) == "Exif\x00\x00" {
				return exifOrientation(seg[6:])
			}
		}
		i += 2 + segLen
	}
	return 0
}

// exifOrientation walks the TIFF structure inside an EXIF payload looking
// for tag 0x0112 in IFD0.
func exifOrientation(tiff []byte) int {
	if len(tiff) < 8 {
		return 0
	}
	var bo binary.ByteOrder
	switch {
	case tiff[0] == 'I' && tiff[1] == 'I':
		bo = binary.LittleEndian
	case tiff[0] == 'M' && tiff[1] == 'M':
		bo = binary.BigEndian
	default:
		return 0
	}
	if bo.Uint16(tiff[2:4]) != 42 {
		return 0
	}
	ifdOff := int(bo.Uint32(tiff[4:8]))
	if ifdOff+2 > len(tiff) {
		return 0
	}
	n := int(bo.Uint16(tiff[ifdOff : ifdOff+2]))
	for i := 0; i < n; i++ {
		off := ifdOff + 2 + i*12
		if off+12 > len(tiff) {
			break
		}
		tag := bo.Uint16(tiff[off : off+2])
		if tag != 0x0112 {
			continue
		}
		v := int(bo.Uint16(tiff[off+8 : off+10]))
		if v >= 1 && v <= 8 {
			return v
		}
		return 0
	}
	return 0
}
