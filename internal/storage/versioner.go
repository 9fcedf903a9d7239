package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// stampLayout is the timestamp embedded in submission file names.
const stampLayout = "20060102-150405"

// decodePattern parses any versioned artifact name (extension already
// stripped): identity, version, optional timestamp.
var decodePattern = regexp.MustCompile(`^(.+)_v(\d+)(?:-(\d{8}-\d{6}))?$`)

// Versioner encodes version numbers and timestamps into artifact file
// names and computes the next free version for a logical identity by
// scanning the files already on disk.
type Versioner struct{}

func NewVersioner() *Versioner { return &Versioner{} }

// Name renders "<prefix>_v<n><ext>".
func (v *Versioner) Name(prefix string, version int, ext string) string {
	return fmt.Sprintf("%s_v%d%s", prefix, version, ext)
}

// TimestampedName renders "<prefix>_v<n>-<yyyyMMdd>-<HHmmss><ext>".
func (v *Versioner) TimestampedName(prefix string, version int, at time.Time, ext string) string {
	return fmt.Sprintf("%s_v%d-%s%s", prefix, version, at.Format(stampLayout), ext)
}

// NextVersion returns 1 + the highest version currently stored in dir for
// prefix/ext. Files that carry the prefix but do not parse against the
// strict version grammar are ignored. A missing directory counts as empty.
//
// Callers must hold the Serializer region around NextVersion and the write
// that follows it; the scan-then-write sequence is not atomic on its own.
func (v *Versioner) NextVersion(dir, prefix, ext string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}
		return 0, fmt.Errorf("scan versions in %s: %w", dir, err)
	}

	strict := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `_v(\d+)(-\d{8}-\d{6})?$`)

	max := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix+"_v") || !strings.HasSuffix(name, ext) {
			continue
		}
		stem := strings.TrimSuffix(name, ext)
		m := strict.FindStringSubmatch(stem)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

// RemoveMatching deletes every "<prefix>*<ext>" file in dir except the
// names listed in keep. Overwrite mode calls this after a fresh version 1
// was accepted, keeping only that file. The match is looser than the
// version grammar on purpose: a stray file that merely shares the prefix
// is swept away here even though NextVersion would have ignored it.
func (v *Versioner) RemoveMatching(dir, prefix, ext string, keep ...string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	kept := make(map[string]bool, len(keep))
	for _, k := range keep {
		kept[k] = true
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if kept[name] || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

// Decoded is the result of parsing a versioned artifact name.
type Decoded struct {
	Identity string
	Version  int
	Stamp    time.Time
	HasStamp bool
}

// Decode parses a file name (extension included) against the version
// grammar. The identity is everything before the final "_v<n>" marker —
// for submissions that is the "<name>_<contact>" pair embedded at write
// time. Returns false when the name does not follow the grammar.
func Decode(name string) (Decoded, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	m := decodePattern.FindStringSubmatch(stem)
	if m == nil {
		return Decoded{}, false
	}
	version, err := strconv.Atoi(m[2])
	if err != nil || version <= 0 {
		return Decoded{}, false
	}
	d := Decoded{Identity: m[1], Version: version}
	if m[3] != "" {
		stamp, err := time.Parse(stampLayout, m[3])
		if err != nil {
			return Decoded{}, false
		}
		d.Stamp = stamp
		d.HasStamp = true
	}
	return d, true
}
