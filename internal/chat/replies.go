package chat

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/docassist/internal/analysis"
	"github.com/KaramelBytes/docassist/internal/session"
)

const uploadTip = "💡 **Quick Tip:** I can provide better analysis if you upload your data files! Use `/upload <path>` to add your CSV or Excel files."

const uploadGuide = `📁 **File Upload Guide**

You can upload data files with ` + "`/upload <path>`" + `.

- **Supported Formats:** CSV, Excel (.xlsx, .xls), JSON

Once uploaded, I can:
- Analyze data structure and quality
- Generate statistical insights
- Create visualizations
- Build comprehensive reports

Try uploading a file now!`

const correlationNoData = `📈 **Correlation Analysis**

I'd love to show you correlations in your data! First, please upload a data file (CSV or Excel) so I can analyze the relationships between variables.

Correlation analysis helps identify:
- Which variables move together
- Strength of relationships
- Potential predictive factors`

const correlationWithData = `📈 **Correlation Analysis**

Analyzing correlations in your uploaded data...

I'll examine relationships between numeric variables and highlight:
- Strong positive correlations (>0.7)
- Strong negative correlations (<-0.7)
- Potential causal relationships
- Business implications

*This analysis will be included in your next report.*`

const insightsNoData = `💡 **Data Insights**

To generate meaningful insights, I need some data to work with! Please upload:

- 📊 CSV files with your business data
- 📈 Excel spreadsheets
- 📋 JSON data files

I'll then provide:
- Key trends and patterns
- Anomalies and outliers
- Business recommendations
- Actionable next steps`

const salesReport = `📊 **Sales Report Generation**

I'll help you create a comprehensive sales report! To get started, I need some information:

- What time period? (Q4 2024, last month, etc.)
- Do you have sales data files to analyze?
- Who is the target audience?
- Should I include charts and visualizations?

You can upload CSV or Excel files, or I can create a template report for you.`

const articleRequest = `📝 **Article Creation**

Perfect! I can write various types of articles for you:

- **Topic:** What subject should I cover?
- **Length:** Short (500 words), Medium (1000), Long (2000+)?
- **Tone:** Professional, casual, technical?
- **Audience:** Who will read this?

Just tell me more about what you have in mind!`

const memoRequest = `📋 **Memo Generation**

I'll create a professional memo for you! Please provide:

- **Subject:** What's the memo about?
- **Recipients:** Who should receive it?
- **Purpose:** Announcement, request, update?
- **Key points:** Main information to include

I'll format it properly with all the standard memo elements.`

const dataAnalysisNoFiles = `📈 **Data Analysis**

Excellent! I can analyze your data and create insights. Here's what I can do:

- Load CSV, Excel, or JSON files
- Generate statistical summaries
- Create visualizations and charts
- Provide actionable insights
- Export everything to Word

Please upload your data files with ` + "`/upload <path>`" + `, then I'll analyze them for you!`

const genericCreate = `✨ **Document Creation**

I'd love to help you create that! To give you the best result, could you tell me:

- **Document type:** Report, article, memo, presentation?
- **Topic/subject:** What should it be about?
- **Data:** Do you have files you'd like to include?
- **Purpose:** Internal use, client presentation, etc.?

The more details you provide, the better I can tailor the document to your needs!`

const excelNeedsBackend = "📋 Excel file detected. For full Excel support, the backend integration is required."

func generalReplies(message string) []string {
	return []string{
		fmt.Sprintf("I understand you're looking for help with %q. Let me clarify - are you wanting to create a document, analyze data, or need assistance with something else?", message),
		"Thanks for that information! To better assist you, could you specify what type of document or analysis you need?",
		"I'm here to help with document automation! Could you tell me more about what you'd like to create or analyze?",
	}
}

func createReportWithData(files []session.UploadedFile) string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return "📊 **Creating Data Report**\n\n" +
		"Excellent! I'll create a comprehensive report using your uploaded data:\n\n" +
		"- 📁 **Files:** " + strings.Join(names, ", ") + "\n" +
		"- 📈 **Analysis:** Statistical insights & visualizations\n" +
		"- 📋 **Format:** Professional Word document\n\n" +
		"*Processing your data and generating report...*"
}

func insightsWithData(rep *analysis.Report) string {
	var b strings.Builder
	b.WriteString("💡 **Advanced Insights**\n\n")
	fmt.Fprintf(&b, "Based on your data analysis of **%s**, here are key insights:\n\n", rep.SourceName)
	for _, in := range rep.Insights {
		b.WriteString("- ")
		b.WriteString(in)
		b.WriteString("\n")
	}
	b.WriteString("\n**Recommendations:**\n\n" +
		"- Consider deeper analysis of numeric relationships\n" +
		"- Look for seasonal patterns if time data is available\n" +
		"- Identify top performers and outliers\n\n" +
		"Would you like me to create a detailed insights report?")
	return b.String()
}

func dataAnalysisWithFiles(files []session.UploadedFile) string {
	var b strings.Builder
	b.WriteString("📈 **Data Analysis**\n\n")
	fmt.Fprintf(&b, "I see you have %d file(s) uploaded! I can analyze:\n\n", len(files))
	for _, f := range files {
		fmt.Fprintf(&b, "- 📁 %s (%s)\n", f.Name, f.SizeLabel)
	}
	b.WriteString("\nAvailable analyses:\n\n" +
		"- Statistical summaries and distributions\n" +
		"- Correlation analysis\n" +
		"- Trend identification\n" +
		"- Outlier detection\n" +
		"- Custom visualizations\n\n" +
		"Say \"analyze [filename]\" or use `/analyze <id|name>`!")
	return b.String()
}

func helpReply(fileCount int) string {
	status := "💡 **Tip:** Upload data files to unlock advanced analytics!"
	if fileCount > 0 {
		status = fmt.Sprintf("📁 **Your Files:** %d file(s) uploaded and ready for analysis!", fileCount)
	}
	return "❓ **How I Can Help**\n\n" +
		"I'm your document automation assistant! Here's what I can do:\n\n" +
		"- **Create Documents:** Reports, articles, memos, presentations\n" +
		"- **Analyze Data:** CSV/Excel files with charts and insights\n" +
		"- **Professional Formatting:** Styled, ready-to-use documents\n" +
		"- **File Upload:** `/upload <path>` for instant analysis\n\n" +
		status + "\n\n" +
		"**Try saying:**\n\n" +
		"- \"Create a sales report with my data\"\n" +
		"- \"Analyze the uploaded file\"\n" +
		"- \"Show me correlations in the data\"\n" +
		"- \"Generate insights from my CSV\"\n" +
		"- \"Create a presentation about trends\""
}

// UploadNotice is posted after a successful upload.
func UploadNotice(f session.UploadedFile) string {
	return fmt.Sprintf("📎 File uploaded: %s **%s** (%s)\nSay \"analyze %s\" or run `/analyze %s` to process it.", f.Icon, f.Name, f.SizeLabel, f.Name, shortID(f.ID))
}

// RemoveNotice is posted after an upload is removed.
const RemoveNotice = "🗑️ File removed from analysis queue."

// AnalysisMessage renders an analysis report followed by suggested next steps.
func AnalysisMessage(rep *analysis.Report) string {
	var b strings.Builder
	b.WriteString("📊 ")
	b.WriteString(rep.Markdown())
	if len(rep.Suggestions) > 0 {
		b.WriteString("\n📈 Chart generation available: connect to the backend for live charts.\n")
	}
	fmt.Fprintf(&b, "\n**Next Steps:**\n\n"+
		"- Say \"create report with %s\" to generate a document\n"+
		"- Ask \"show me correlations\" for relationship analysis\n"+
		"- Request \"generate insights\" for detailed analysis\n", rep.SourceName)
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Greeting opens an interactive session.
const Greeting = "👋 Hi! I'm your document assistant. Upload CSV, Excel or JSON files with `/upload <path>`, then ask me to analyze them or create a report. Type `/help` for commands."

// FileLine is one entry of an upload listing.
func FileLine(f session.UploadedFile) string {
	return fmt.Sprintf("%s %s (%s) [%s]", f.Icon, f.Name, f.SizeLabel, shortID(f.ID))
}
