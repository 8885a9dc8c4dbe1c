package xfile

// TsidConfig narrows a tsid() scan.
type TsidConfig struct {
	// LookupID, when HasLookupFilter, restricts the result to files whose
	// space ID matches.
	LookupID        uint32
	HasLookupFilter bool
	// MaxDepth bounds directory recursion; 0 means unlimited.
	MaxDepth int
}

// TsidEntry maps one tablespace file to its space ID.
type TsidEntry struct {
	Path     string
	SpaceID  uint32
	PageSize uint32
}

// Tsid walks root building the file↔space-id map. Files that fail
// to open are omitted rather than aborting the scan.
func Tsid(root string, cfg TsidConfig) ([]TsidEntry, error) {
	var entries []TsidEntry
	err := walkCandidates(root, cfg.MaxDepth, func(path string) {
		h, err := openOnly(path)
		if err != nil {
			return
		}
		defer h.Close()
		if cfg.HasLookupFilter && h.SpaceID != cfg.LookupID {
			return
		}
		entries = append(entries, TsidEntry{Path: path, SpaceID: h.SpaceID, PageSize: h.PageSize})
	})
	return entries, err
}
