package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/rearrange-ml/seqprep/episode"
)

// LoadIndex reads the split's index file under dataRoot/indexRoot, a JSON
// array of episode file names relative to dataRoot, and returns the absolute
// paths. A missing index file is logged and yields no paths.
func LoadIndex(dataRoot, indexRoot, split string, logger golog.Logger) ([]string, error) {
	path := filepath.Join(dataRoot, indexRoot, split+"_sequence_indices_file.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Infof("%s does not exist", path)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, errors.Wrapf(err, "error parsing index file %q", path)
	}
	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(dataRoot, name))
	}
	return paths, nil
}

// FilterByMovedObjectCount keeps only episodes whose recorded moved-object
// count lies in [minCount, maxCount].
func FilterByMovedObjectCount(paths []string, minCount, maxCount int, logger golog.Logger) ([]string, error) {
	var kept []string
	for _, path := range paths {
		ep, err := episode.Open(path)
		if err != nil {
			return nil, err
		}
		moved, err := ep.String("moved_objs")
		if err != nil {
			return nil, err
		}
		n := len(strings.Split(moved, ","))
		if n >= minCount && n <= maxCount {
			kept = append(kept, path)
		}
	}
	logger.Infof("%d valid sequences left after filtering for %d to %d moved objects",
		len(kept), minCount, maxCount)
	return kept, nil
}
