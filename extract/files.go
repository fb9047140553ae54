package extract

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/constants"
	"github.com/pkg/errors"
)

// FileKind identifies one of the four registry extract files.
type FileKind string

const (
	KindTitle       FileKind = "title"
	KindParcel      FileKind = "parcel"
	KindTitleParcel FileKind = "titleparcel"
	KindTitleOwner  FileKind = "titleowner"
)

// fileKeywords is checked in order so the most specific keyword wins,
// e.g. EMLI_3_WKLY_TITLEPARCEL.csv is a title-parcel file and not a title or parcel file.
var fileKeywords = []struct {
	keyword string
	kind    FileKind
}{
	{"TITLEPARCEL", KindTitleParcel},
	{"TITLEOWNER", KindTitleOwner},
	{"PARCEL", KindParcel},
	{"TITLE", KindTitle},
}

// AllKinds lists the files every extract folder must contain.
var AllKinds = []FileKind{KindTitle, KindParcel, KindTitleParcel, KindTitleOwner}

// ClassifyFile returns the kind of extract file by name, or false if the name matches no keyword.
func ClassifyFile(name string) (FileKind, bool) {
	if !strings.EqualFold(filepath.Ext(name), constants.FileExtension) {
		return "", false
	}
	upper := strings.ToUpper(filepath.Base(name))
	for _, k := range fileKeywords {
		if strings.Contains(upper, k.keyword) {
			return k.kind, true
		}
	}
	return "", false
}

// FindFiles locates the four extract files in dir.
// A missing or ambiguous file is an error.
func FindFiles(dir string) (map[FileKind]string, error) {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading extract directory %q", dir)
	}
	retval := make(map[FileKind]string, len(AllKinds))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		kind, ok := ClassifyFile(e.Name())
		if !ok {
			continue
		}
		if prev, exists := retval[kind]; exists {
			return nil, fmt.Errorf("more than one %v file found in %q: %v and %v", kind, dir, filepath.Base(prev), e.Name())
		}
		retval[kind] = filepath.Join(dir, e.Name())
	}
	for _, k := range AllKinds {
		if _, ok := retval[k]; !ok {
			return nil, fmt.Errorf("no %v file found in extract directory %q", k, dir)
		}
	}
	return retval, nil
}
