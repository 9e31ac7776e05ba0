package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/nikbrunner/gamecrate/internal/model"
)

// resolveFolder finds the folder a command argument names: an id first,
// then a case-insensitive exact name, then the closest fuzzy name match.
// Two equally close fuzzy matches are ambiguous.
func resolveFolder(folders []model.Folder, arg string) (model.Folder, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return model.Folder{}, model.Validation("folder is required")
	}

	for _, f := range folders {
		if f.ID == arg {
			return f, nil
		}
	}
	for _, f := range folders {
		if strings.EqualFold(f.Name, arg) {
			return f, nil
		}
	}

	names := make([]string, len(folders))
	for i, f := range folders {
		names[i] = f.Name
	}
	ranks := fuzzy.RankFindFold(arg, names)
	if len(ranks) == 0 {
		return model.Folder{}, model.NotFoundf("no folder matches %q", arg)
	}
	sort.Sort(ranks)
	if len(ranks) > 1 && ranks[0].Distance == ranks[1].Distance {
		return model.Folder{}, model.Validation(fmt.Sprintf(
			"%q matches both %q and %q", arg, ranks[0].Target, ranks[1].Target))
	}
	return folders[ranks[0].OriginalIndex], nil
}
