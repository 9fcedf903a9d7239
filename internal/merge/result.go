package merge

// Result summarizes one merge run. It is returned to the caller and never
// persisted. For the statistics pipeline MergedFiles carries the number of
// output rows instead of source files.
type Result struct {
	TotalFiles          int    `json:"totalFiles"`
	FilteredFiles       int    `json:"filteredFiles"`
	MergedFiles         int    `json:"mergedFiles"`
	TotalRecords        int    `json:"totalRecords"`
	DeduplicatedRecords int    `json:"deduplicatedRecords"`
	DuplicatedCount     int    `json:"duplicatedCount"`
	OutputPath          string `json:"outputPath"`
	IsSuccess           bool   `json:"isSuccess"`
	ErrorMessage        string `json:"errorMessage,omitempty"`
}

func failed(msg string) Result {
	return Result{IsSuccess: false, ErrorMessage: msg}
}
