// Package nifti reads and writes NIfTI-1 volumes, the on-disk format of the
// neuroimaging scans fed to the segmentation pipeline. Only the single-file
// .nii / .nii.gz layout is supported.
package nifti

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// NIfTI-1 datatype codes.
const (
	DTUint8   = 2
	DTInt16   = 4
	DTInt32   = 8
	DTFloat32 = 16
	DTFloat64 = 64
)

const headerSize = 348

// header is the fixed 348-byte NIfTI-1 header, little-endian on disk.
type header struct {
	SizeofHdr      int32
	DataTypePad    [10]byte
	DbName         [18]byte
	Extents        int32
	SessionError   int16
	Regular        byte
	DimInfo        byte
	Dim            [8]int16
	IntentP1       float32
	IntentP2       float32
	IntentP3       float32
	IntentCode     int16
	Datatype       int16
	Bitpix         int16
	SliceStart     int16
	Pixdim         [8]float32
	VoxOffset      float32
	SclSlope       float32
	SclInter       float32
	SliceEnd       int16
	SliceCode      byte
	XyztUnits      byte
	CalMax         float32
	CalMin         float32
	SliceDuration  float32
	Toffset        float32
	Glmax          int32
	Glmin          int32
	Descrip        [80]byte
	AuxFile        [24]byte
	QformCode      int16
	SformCode      int16
	QuaternB       float32
	QuaternC       float32
	QuaternD       float32
	QoffsetX       float32
	QoffsetY       float32
	QoffsetZ       float32
	SrowX          [4]float32
	SrowY          [4]float32
	SrowZ          [4]float32
	IntentName     [16]byte
	Magic          [4]byte
}

// Volume is one loaded scan: voxel data plus the spatial metadata needed to
// invert resampling later.
type Volume struct {
	// Data holds voxels in on-disk order: x fastest, then y, then z.
	Data []float32

	// Nx, Ny, Nz are the voxel counts per axis.
	Nx, Ny, Nz int

	// Pixdim is the physical voxel size per axis in mm.
	Pixdim [3]float64

	// Affine is the voxel-to-world matrix from the sform rows (zero when the
	// file carries no sform).
	Affine [3][4]float32
}

// At returns the voxel value at (x, y, z). No bounds check.
func (v *Volume) At(x, y, z int) float32 {
	return v.Data[z*v.Nx*v.Ny+y*v.Nx+x]
}

// SliceExtent returns the in-plane size of one axial slice.
func (v *Volume) SliceExtent() (w, h int) {
	return v.Nx, v.Ny
}

// Load reads a .nii or .nii.gz volume. Gzip is detected from the file
// content, not the extension.
func Load(path string) (*Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening volume: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var r io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return decode(r)
}

func decode(r io.Reader) (*Volume, error) {
	var hdr header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("reading NIfTI header: %w", err)
	}
	if hdr.SizeofHdr != headerSize {
		return nil, fmt.Errorf("bad header size %d, want %d (big-endian files are not supported)", hdr.SizeofHdr, headerSize)
	}
	magic := strings.TrimRight(string(hdr.Magic[:]), "\x00")
	if magic != "n+1" && magic != "ni1" {
		return nil, fmt.Errorf("bad NIfTI magic %q", magic)
	}
	if hdr.Dim[0] < 3 {
		return nil, fmt.Errorf("volume has %d dims, want at least 3", hdr.Dim[0])
	}

	nx, ny, nz := int(hdr.Dim[1]), int(hdr.Dim[2]), int(hdr.Dim[3])
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("bad volume dims %dx%dx%d", nx, ny, nz)
	}
	n := nx * ny * nz

	// Skip from the end of the header to the voxel data. vox_offset is 352
	// for single-file NIfTI-1 (header + 4 extension bytes).
	skip := int64(hdr.VoxOffset) - headerSize
	if skip < 0 {
		return nil, fmt.Errorf("bad vox_offset %f", hdr.VoxOffset)
	}
	if _, err := io.CopyN(io.Discard, r, skip); err != nil {
		return nil, fmt.Errorf("skipping to voxel data: %w", err)
	}

	data, err := readVoxels(r, int(hdr.Datatype), n)
	if err != nil {
		return nil, err
	}

	// scl_slope == 0 means "no scaling" per the NIfTI-1 spec.
	if hdr.SclSlope != 0 && (hdr.SclSlope != 1 || hdr.SclInter != 0) {
		for i := range data {
			data[i] = data[i]*hdr.SclSlope + hdr.SclInter
		}
	}

	vol := &Volume{
		Data:   data,
		Nx:     nx,
		Ny:     ny,
		Nz:     nz,
		Pixdim: [3]float64{float64(hdr.Pixdim[1]), float64(hdr.Pixdim[2]), float64(hdr.Pixdim[3])},
	}
	if hdr.SformCode > 0 {
		vol.Affine[0] = hdr.SrowX
		vol.Affine[1] = hdr.SrowY
		vol.Affine[2] = hdr.SrowZ
	}
	return vol, nil
}

func readVoxels(r io.Reader, datatype, n int) ([]float32, error) {
	out := make([]float32, n)
	switch datatype {
	case DTUint8:
		raw := make([]uint8, n)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, fmt.Errorf("reading voxel data: %w", err)
		}
		for i, v := range raw {
			out[i] = float32(v)
		}
	case DTInt16:
		raw := make([]int16, n)
		if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
			return nil, fmt.Errorf("reading voxel data: %w", err)
		}
		for i, v := range raw {
			out[i] = float32(v)
		}
	case DTInt32:
		raw := make([]int32, n)
		if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
			return nil, fmt.Errorf("reading voxel data: %w", err)
		}
		for i, v := range raw {
			out[i] = float32(v)
		}
	case DTFloat32:
		if err := binary.Read(r, binary.LittleEndian, out); err != nil {
			return nil, fmt.Errorf("reading voxel data: %w", err)
		}
	case DTFloat64:
		raw := make([]float64, n)
		if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
			return nil, fmt.Errorf("reading voxel data: %w", err)
		}
		for i, v := range raw {
			out[i] = float32(v)
		}
	default:
		return nil, fmt.Errorf("unsupported NIfTI datatype %d", datatype)
	}
	return out, nil
}

// Save writes the volume as float32 NIfTI-1. Paths ending in .gz are
// gzip-compressed.
func Save(path string, vol *Volume) error {
	if len(vol.Data) != vol.Nx*vol.Ny*vol.Nz {
		return fmt.Errorf("data length %d does not match dims %dx%dx%d", len(vol.Data), vol.Nx, vol.Ny, vol.Nz)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating volume file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}

	hdr := header{
		SizeofHdr: headerSize,
		Regular:   'r',
		Datatype:  DTFloat32,
		Bitpix:    32,
		VoxOffset: 352,
		SclSlope:  1,
		SformCode: 1,
		Magic:     [4]byte{'n', '+', '1', 0},
	}
	hdr.Dim = [8]int16{3, int16(vol.Nx), int16(vol.Ny), int16(vol.Nz), 1, 1, 1, 1}
	hdr.Pixdim = [8]float32{1, float32(vol.Pixdim[0]), float32(vol.Pixdim[1]), float32(vol.Pixdim[2]), 0, 0, 0, 0}
	hdr.SrowX = vol.Affine[0]
	hdr.SrowY = vol.Affine[1]
	hdr.SrowZ = vol.Affine[2]
	if hdr.SrowX == ([4]float32{}) {
		// identity sform scaled by pixdim
		hdr.SrowX = [4]float32{float32(vol.Pixdim[0]), 0, 0, 0}
		hdr.SrowY = [4]float32{0, float32(vol.Pixdim[1]), 0, 0}
		hdr.SrowZ = [4]float32{0, 0, float32(vol.Pixdim[2]), 0}
	}

	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("writing NIfTI header: %w", err)
	}
	// 4 zero extension bytes pad the header to vox_offset
	if _, err := w.Write(make([]byte, 4)); err != nil {
		return fmt.Errorf("writing header padding: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, vol.Data); err != nil {
		return fmt.Errorf("writing voxel data: %w", err)
	}

	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("closing gzip stream: %w", err)
		}
	}
	return nil
}

// Stats returns min, max and mean of the voxel data, the numbers the demo
// prints for each stage.
func (v *Volume) Stats() (min, max, mean float64) {
	if len(v.Data) == 0 {
		return 0, 0, 0
	}
	min, max = math.Inf(1), math.Inf(-1)
	var sum float64
	for _, x := range v.Data {
		f := float64(x)
		if f < min {
			min = f
		}
		if f > max {
			max = f
		}
		sum += f
	}
	return min, max, sum / float64(len(v.Data))
}
