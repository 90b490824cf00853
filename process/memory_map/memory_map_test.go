package memory_map

import (
	"errors"
	"testing"
)

func TestFindGuestRAM(t *testing.T) {
	const mib = 1024 * 1024

	heur := DefaultGuestHeuristic()

	tests := []struct {
		name    string
		regions []Region
		want    uint64 // expected Start
		wantErr bool
	}{
		{
			name: "picks 32MiB rw anonymous",
			regions: []Region{
				{Start: 0x1000, Size: 4 * mib, Perms: "rw-p"},
				{Start: 0x7f0000000000, Size: 32 * mib, Perms: "rw-p"},
				{Start: 0x7f8000000000, Size: 64 * mib, Perms: "rw-p"},
			},
			want: 0x7f0000000000,
		},
		{
			name: "tolerates rounded-up size",
			regions: []Region{
				{Start: 0x7f0000000000, Size: 32*mib + 2*mib, Perms: "rw-p"},
			},
			want: 0x7f0000000000,
		},
		{
			name: "rejects file-backed",
			regions: []Region{
				{Start: 0x7f0000000000, Size: 32 * mib, Perms: "rw-p", Path: "/usr/lib/libfoo.so"},
			},
			wantErr: true,
		},
		{
			name: "rejects read-only",
			regions: []Region{
				{Start: 0x7f0000000000, Size: 32 * mib, Perms: "r--p"},
			},
			wantErr: true,
		},
		{
			name: "rejects special mappings",
			regions: []Region{
				{Start: 0x7f0000000000, Size: 32 * mib, Perms: "rw-p", Path: "[heap]"},
			},
			wantErr: true,
		},
		{
			name: "largest of several matches",
			regions: []Region{
				{Start: 0x7f0000000000, Size: 32 * mib, Perms: "rw-p"},
				{Start: 0x7f1000000000, Size: 32*mib + mib, Perms: "rw-p"},
			},
			want: 0x7f1000000000,
		},
		{
			name:    "empty map",
			regions: nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := FindGuestRAM(tt.regions, heur)
			if tt.wantErr {
				if !errors.Is(err, ErrRegionNotFound) {
					t.Fatalf("err = %v, want ErrRegionNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if r.Start != tt.want {
				t.Errorf("Start = %#x, want %#x", r.Start, tt.want)
			}
		})
	}
}

func TestRegionPredicates(t *testing.T) {
	r := Region{Start: 0x1000, Size: 0x1000, Perms: "rw-p"}

	if !r.Contains(0x1000) || !r.Contains(0x1FFF) {
		t.Error("Contains rejected in-range address")
	}
	if r.Contains(0xFFF) || r.Contains(0x2000) {
		t.Error("Contains accepted out-of-range address")
	}
	if r.End() != 0x2000 {
		t.Errorf("End = %#x", r.End())
	}
	if !r.IsReadable() || !r.IsWritable() || !r.IsAnonymous() {
		t.Error("rw-p anonymous region misclassified")
	}
}

func TestRegionForAddress(t *testing.T) {
	regions := []Region{
		{Start: 0x1000, Size: 0x1000},
		{Start: 0x5000, Size: 0x1000},
	}

	if got := RegionForAddress(0x5800, regions); got == nil || got.Start != 0x5000 {
		t.Errorf("RegionForAddress(0x5800) = %v", got)
	}
	if got := RegionForAddress(0x3000, regions); got != nil {
		t.Errorf("RegionForAddress(0x3000) = %v, want nil", got)
	}
}
