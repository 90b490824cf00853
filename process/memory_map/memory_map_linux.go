//go:build linux

package memory_map

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadProcessRegions reads and parses the memory map for a process from
// /proc/[pid]/maps.
func ReadProcessRegions(pid int) ([]Region, error) {
	file, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseRegions(file)
}

// ParseRegions parses /proc/[pid]/maps content. Unparseable lines are
// skipped; the kernel can append lines while we read.
func ParseRegions(r io.Reader) ([]Region, error) {
	var regions []Region
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		// Address range, e.g. "7f2a40000000-7f2a42000000"
		addrRange := strings.Split(fields[0], "-")
		if len(addrRange) != 2 {
			continue
		}

		startAddr, err := strconv.ParseUint(addrRange[0], 16, 64)
		if err != nil {
			continue
		}
		endAddr, err := strconv.ParseUint(addrRange[1], 16, 64)
		if err != nil {
			continue
		}

		// Backing path is the sixth column when present
		path := ""
		if len(fields) >= 6 {
			path = fields[5]
		}

		regions = append(regions, Region{
			Start: startAddr,
			Size:  uint(endAddr - startAddr),
			Perms: fields[1],
			Path:  path,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return regions, nil
}
