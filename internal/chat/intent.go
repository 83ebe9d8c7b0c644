package chat

import "strings"

// Intent is the routing decision for one user message.
type Intent int

const (
	IntentGeneral Intent = iota
	IntentAnalyzeFile
	IntentCreateReportWithData
	IntentCorrelation
	IntentInsights
	IntentSalesReport
	IntentArticle
	IntentMemo
	IntentDataAnalysis
	IntentUpload
	IntentHelp
	IntentCreate
)

var intentNames = map[Intent]string{
	IntentGeneral:              "general",
	IntentAnalyzeFile:          "analyze_file",
	IntentCreateReportWithData: "create_report_with_data",
	IntentCorrelation:          "correlation",
	IntentInsights:             "insights",
	IntentSalesReport:          "sales_report",
	IntentArticle:              "article",
	IntentMemo:                 "memo",
	IntentDataAnalysis:         "data_analysis",
	IntentUpload:               "upload",
	IntentHelp:                 "help",
	IntentCreate:               "create",
}

func (i Intent) String() string {
	if s, ok := intentNames[i]; ok {
		return s
	}
	return "unknown"
}

// Detect classifies a message with case-insensitive substring rules.
// The first matching rule wins, so order matters.
func Detect(message string, hasFiles, hasAnalyses bool) Intent {
	m := strings.ToLower(message)
	has := func(subs ...string) bool {
		for _, s := range subs {
			if strings.Contains(m, s) {
				return true
			}
		}
		return false
	}
	switch {
	case hasFiles && has("analyze"):
		return IntentAnalyzeFile
	case hasAnalyses && has("create", "generate") && has("report", "document"):
		return IntentCreateReportWithData
	case has("correlation", "relationship"):
		return IntentCorrelation
	case has("insight", "trend"):
		return IntentInsights
	case has("sales report", "sales analysis"):
		return IntentSalesReport
	case has("article", "blog"):
		return IntentArticle
	case has("memo", "memorandum"):
		return IntentMemo
	case has("analyze") && has("data", "csv"):
		return IntentDataAnalysis
	case has("upload", "file"):
		return IntentUpload
	case has("help", "started"):
		return IntentHelp
	case has("create", "generate"):
		return IntentCreate
	}
	return IntentGeneral
}

// wantsUploadTip reports whether a data-related message deserves the upload tip.
func wantsUploadTip(message string) bool {
	m := strings.ToLower(message)
	if strings.Contains(m, "help") {
		return false
	}
	for _, s := range []string{"data", "analyze", "csv", "excel"} {
		if strings.Contains(m, s) {
			return true
		}
	}
	return false
}
