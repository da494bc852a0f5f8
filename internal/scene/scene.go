// Package scene orders Sentinel-1 products by acquisition time and tracks the
// master/slave role each product plays in a coregistration run.
package scene

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"sarchain/internal/services"
)

// TimestampLayout is the acquisition start token embedded in product names.
const TimestampLayout = "20060102T150405"

// timestampField is the zero-based underscore field holding the start time,
// e.g. S1A_IW_SLC__1SDV_20211229T231926_... splits as
// [S1A IW SLC "" 1SDV 20211229T231926 ...].
const timestampField = 5

// Role is the part a product plays in a run.
type Role int

const (
	Unassigned Role = iota
	Master
	Slave
)

func (r Role) String() string {
	switch r {
	case Master:
		return "master"
	case Slave:
		return "slave"
	default:
		return "unassigned"
	}
}

// Product is one input acquisition.
type Product struct {
	SourcePath string
	AcquiredAt time.Time
	role       Role
}

// Role returns the assigned role.
func (p *Product) Role() Role { return p.role }

// Name returns the product base name without the container extension.
func (p *Product) Name() string {
	base := filepath.Base(p.SourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Assign sets the role. A role can only be assigned once.
func (p *Product) Assign(role Role) error {
	if role == Unassigned {
		return fmt.Errorf("assign %s: role must be master or slave", p.Name())
	}
	if p.role != Unassigned {
		return fmt.Errorf("assign %s: already %s", p.Name(), p.role)
	}
	p.role = role
	return nil
}

// ParseAcquisitionTime extracts the acquisition start time from a product
// path. Failures carry services.ErrTimestampParse.
func ParseAcquisitionTime(path string) (time.Time, error) {
	base := filepath.Base(path)
	fields := strings.Split(base, "_")
	if len(fields) <= timestampField {
		return time.Time{}, services.Wrap(services.ErrTimestampParse, "ordering", "parse timestamp",
			fmt.Sprintf("%s has no field %d", base, timestampField+1), nil)
	}
	token := fields[timestampField]
	ts, err := time.Parse(TimestampLayout, token)
	if err != nil {
		return time.Time{}, services.Wrap(services.ErrTimestampParse, "ordering", "parse timestamp",
			fmt.Sprintf("%s: token %q", base, token), err)
	}
	return ts, nil
}

// Order parses every path and returns products sorted ascending by acquisition
// time. Equal timestamps keep their input order.
func Order(paths []string) ([]*Product, error) {
	products := make([]*Product, 0, len(paths))
	for _, path := range paths {
		ts, err := ParseAcquisitionTime(path)
		if err != nil {
			return nil, err
		}
		products = append(products, &Product{SourcePath: path, AcquiredAt: ts})
	}
	slices.SortStableFunc(products, func(a, b *Product) int {
		return a.AcquiredAt.Compare(b.AcquiredAt)
	})
	return products, nil
}
