package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LocationResult is the per-store outcome of a configuration patch.
type LocationResult struct {
	Path    string `json:"path"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PatchReport aggregates patch outcomes across every configured store copy.
// Partial success (some stores updated, some not) is a valid terminal state,
// reported rather than raised.
type PatchReport struct {
	Locations    []LocationResult `json:"locations"`
	SuccessCount int              `json:"success_count"`
	Total        int              `json:"total"`
	Summary      string           `json:"summary"`
}

// PatchConfig records the relocated memo's path on the entity's descriptor
// in every configuration store copy. Stores are patched independently; one
// unwritable copy never blocks the others.
func (s *Service) PatchConfig(entityName string) PatchReport {
	memoPath := filepath.Join(s.cfg.MemosDir, entityName+"_memo.pdf")

	report := PatchReport{Total: len(s.cfg.ConfigStorePaths)}
	for _, storePath := range s.cfg.ConfigStorePaths {
		res := s.patchStore(storePath, entityName, memoPath)
		if res.Success {
			report.SuccessCount++
		}
		report.Locations = append(report.Locations, res)
	}
	report.Summary = fmt.Sprintf("updated %d of %d configuration stores for %s",
		report.SuccessCount, report.Total, entityName)
	s.log.LogInfof("%s", report.Summary)
	return report
}

func (s *Service) patchStore(storePath, entityName, memoPath string) LocationResult {
	raw, err := os.ReadFile(storePath)
	if err != nil {
		return LocationResult{Path: storePath, Error: fmt.Sprintf("read: %v", err)}
	}

	// Decode generically so unrelated configuration keys round-trip intact.
	var store map[string]interface{}
	if err := json.Unmarshal(raw, &store); err != nil {
		return LocationResult{Path: storePath, Error: fmt.Sprintf("decode: %v", err)}
	}

	companies, ok := store["companies"].([]interface{})
	if !ok {
		return LocationResult{Path: storePath, Error: "no companies list in store"}
	}

	patched := false
	for _, c := range companies {
		company, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		if name, _ := company["name"].(string); name == entityName {
			company["ai_generated_memo"] = memoPath
			patched = true
			break
		}
	}
	if !patched {
		return LocationResult{Path: storePath, Error: fmt.Sprintf("company %q not present", entityName)}
	}

	out, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return LocationResult{Path: storePath, Error: fmt.Sprintf("encode: %v", err)}
	}
	if err := writeAtomic(storePath, out); err != nil {
		return LocationResult{Path: storePath, Error: fmt.Sprintf("write: %v", err)}
	}
	return LocationResult{Path: storePath, Success: true, Message: "ai_generated_memo updated"}
}
