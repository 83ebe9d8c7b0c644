package chat

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strings"

	"github.com/KaramelBytes/docassist/internal/backend"
	"github.com/KaramelBytes/docassist/internal/generate"
	"github.com/KaramelBytes/docassist/internal/parser"
	"github.com/KaramelBytes/docassist/internal/session"
	"go.uber.org/zap"
)

// Emit receives each bot message, formatted as Markdown, in order.
type Emit func(message string)

// Assistant answers chat messages for one session. With a nil backend it
// replies from canned text; otherwise messages go to the backend.
type Assistant struct {
	sess    *session.Session
	sim     *generate.Simulator
	backend *backend.Client
	logger  *zap.Logger

	// OnProgress, when set, receives generation progress updates.
	OnProgress func(generate.Progress)
	// Pick selects one of n general replies. Defaults to rand.Intn.
	Pick func(n int) int
}

// NewAssistant wires an assistant. client may be nil for local mode.
func NewAssistant(sess *session.Session, sim *generate.Simulator, client *backend.Client, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{sess: sess, sim: sim, backend: client, logger: logger, Pick: rand.Intn}
}

// Remote reports whether replies come from the backend.
func (a *Assistant) Remote() bool { return a.backend != nil }

// Upload registers a file and emits the upload notice.
func (a *Assistant) Upload(name string, content []byte, emit Emit) error {
	f, err := a.sess.Files.Add(name, content)
	if err != nil {
		if errors.Is(err, session.ErrUnsupportedType) {
			emit(fmt.Sprintf("❌ File type not supported: %s\nPlease upload CSV, Excel, or JSON files.", name))
		}
		return err
	}
	a.logger.Info("file uploaded", zap.String("file", f.Name), zap.Int64("bytes", f.Size))
	emit(UploadNotice(f))
	return nil
}

// Remove drops an upload by id, id prefix or name.
func (a *Assistant) Remove(ref string, emit Emit) error {
	f, err := a.sess.Files.Resolve(ref)
	if err != nil {
		return err
	}
	if err := a.sess.Remove(f.ID); err != nil {
		return err
	}
	emit(RemoveNotice)
	return nil
}

// Analyze runs the local analyzer on the referenced upload, or on the latest
// upload when ref is empty.
func (a *Assistant) Analyze(ctx context.Context, ref string, emit Emit) error {
	var (
		f   session.UploadedFile
		err error
	)
	if strings.TrimSpace(ref) == "" {
		var ok bool
		if f, ok = a.sess.Files.Latest(); !ok {
			return fmt.Errorf("%w: no uploads yet", session.ErrNotFound)
		}
	} else if f, err = a.sess.Files.Resolve(ref); err != nil {
		return err
	}
	return a.analyzeFile(ctx, f, emit)
}

func (a *Assistant) analyzeFile(ctx context.Context, f session.UploadedFile, emit Emit) error {
	if a.Remote() {
		return a.remoteAnalyze(ctx, f, emit)
	}
	emit(fmt.Sprintf("🔍 Analyzing **%s**...", f.Name))
	rep, err := a.sess.Analyze(ctx, f.ID)
	switch {
	case errors.Is(err, parser.ErrLegacyExcel):
		emit(excelNeedsBackend)
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case err != nil:
		emit(fmt.Sprintf("❌ Error analyzing %s: %v", f.Name, err))
		return nil
	}
	emit(AnalysisMessage(rep))
	return nil
}

// Respond handles one free-text user message.
func (a *Assistant) Respond(ctx context.Context, message string, emit Emit) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}
	tip := a.sess.Files.Len() == 0 && wantsUploadTip(message)
	tipped := false
	out := func(msg string) {
		if msg == uploadTip {
			tipped = true
		}
		emit(msg)
	}
	var err error
	if a.Remote() {
		err = a.respondRemote(ctx, message, out)
	} else {
		err = a.respondLocal(ctx, message, out)
	}
	// The tip trails the reply and is posted at most once per turn.
	if err == nil && tip && !tipped && ctx.Err() == nil {
		emit(uploadTip)
	}
	return err
}

func (a *Assistant) respondLocal(ctx context.Context, message string, emit Emit) error {
	files := a.sess.Files.List()
	intent := Detect(message, len(files) > 0, a.sess.HasAnalyses())
	a.logger.Debug("intent detected", zap.Stringer("intent", intent))

	switch intent {
	case IntentAnalyzeFile:
		f, ok := a.sess.Files.Mentioned(message)
		if !ok {
			f, _ = a.sess.Files.Latest()
		}
		return a.analyzeFile(ctx, f, emit)
	case IntentCreateReportWithData:
		emit(createReportWithData(files))
		return a.generate(ctx, "data report", emit)
	case IntentCorrelation:
		if a.sess.HasAnalyses() {
			emit(correlationWithData)
		} else {
			emit(correlationNoData)
		}
	case IntentInsights:
		if rep, ok := a.sess.Cache.Latest(); ok {
			emit(insightsWithData(rep))
		} else {
			emit(insightsNoData)
		}
	case IntentSalesReport:
		a.sess.SetDocument("report", "sales")
		emit(salesReport)
	case IntentArticle:
		a.sess.SetDocument("article", "")
		emit(articleRequest)
	case IntentMemo:
		a.sess.SetDocument("memo", "")
		emit(memoRequest)
	case IntentDataAnalysis:
		a.sess.SetDocument("analysis", "")
		if len(files) > 0 {
			emit(dataAnalysisWithFiles(files))
		} else {
			emit(dataAnalysisNoFiles)
		}
	case IntentUpload:
		emit(uploadGuide)
	case IntentHelp:
		emit(helpReply(len(files)))
	case IntentCreate:
		emit(genericCreate)
	default:
		replies := generalReplies(message)
		emit(replies[a.Pick(len(replies))])
	}
	return nil
}

func (a *Assistant) generate(ctx context.Context, docType string, emit Emit) error {
	if a.sim == nil {
		emit(generate.CompletionMessage(docType))
		return nil
	}
	msg, err := a.sim.Run(ctx, docType, a.OnProgress)
	if err != nil {
		return err
	}
	emit(msg)
	return nil
}

func (a *Assistant) respondRemote(ctx context.Context, message string, emit Emit) error {
	resp, err := a.backend.Chat(ctx, backend.ChatRequest{Message: message, Context: a.remoteContext()})
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if resp.BotMessage != "" {
		emit(resp.BotMessage)
	}
	a.logger.Debug("backend replied", zap.String("action", resp.Action), zap.String("request_id", resp.RequestID))

	switch resp.Action {
	case "":
		return nil
	case "generate_document":
		return a.remoteGenerate(ctx, resp.Params, emit)
	case "analyze", "upload_and_analyze":
		f, ok := a.sess.Files.Mentioned(message)
		if !ok {
			f, ok = a.sess.Files.Latest()
		}
		if !ok {
			emit(uploadTip)
			return nil
		}
		return a.remoteAnalyze(ctx, f, emit)
	default:
		a.logger.Warn("ignoring unknown backend action", zap.String("action", resp.Action))
		return nil
	}
}

func (a *Assistant) remoteGenerate(ctx context.Context, params map[string]any, emit Emit) error {
	resp, err := a.backend.GenerateDocument(ctx, params)
	if err != nil {
		return fmt.Errorf("generate document: %w", err)
	}
	msg := resp.BotMessage
	if resp.DownloadURL != "" {
		msg += fmt.Sprintf("\n\n[Download document](%s)", a.resolveURL(resp.DownloadURL))
	}
	emit(strings.TrimSpace(msg))
	if dt, ok := params["doc_type"].(string); ok {
		a.sess.SetDocument(dt, "")
	}
	return nil
}

func (a *Assistant) remoteAnalyze(ctx context.Context, f session.UploadedFile, emit Emit) error {
	emit(fmt.Sprintf("🔍 Uploading **%s** for analysis...", f.Name))
	resp, err := a.backend.UploadAndAnalyze(ctx, f.Name, f.Content)
	if err != nil {
		return fmt.Errorf("upload and analyze: %w", err)
	}
	var b strings.Builder
	b.WriteString(resp.BotMessage)
	if len(resp.Insights) > 0 {
		b.WriteString("\n\n**Key Insights:**\n\n")
		for _, in := range resp.Insights {
			b.WriteString("- " + in + "\n")
		}
	}
	if len(resp.Recommendations) > 0 {
		b.WriteString("\n**Recommendations:**\n\n")
		for _, r := range resp.Recommendations {
			b.WriteString("- " + r + "\n")
		}
	}
	emit(strings.TrimSpace(b.String()))
	return nil
}

func (a *Assistant) remoteContext() map[string]any {
	c := a.sess.Context()
	out := map[string]any{}
	if c.DocumentType != "" {
		out["document_type"] = c.DocumentType
	}
	if c.Topic != "" {
		out["topic"] = c.Topic
	}
	if c.DataSource != "" {
		out["data_source"] = c.DataSource
	}
	if len(c.Preferences) > 0 {
		out["preferences"] = c.Preferences
	}
	var names []string
	for _, f := range a.sess.Files.List() {
		names = append(names, f.Name)
	}
	if len(names) > 0 {
		out["uploaded_files"] = names
	}
	return out
}

// resolveURL makes relative download links absolute against the backend URL.
func (a *Assistant) resolveURL(link string) string {
	ref, err := url.Parse(link)
	if err != nil || ref.IsAbs() {
		return link
	}
	base, err := url.Parse(a.backend.BaseURL() + "/")
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}
