package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ad/go-scholar-wizard/internal/apiclient"
	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/ad/go-scholar-wizard/internal/wizard"
	tgmodels "github.com/go-telegram/bot/models"
)

// Callback data understood by the handler.
const (
	CallbackPrev   = "wiz:prev"
	CallbackNext   = "wiz:next"
	CallbackSave   = "wiz:save"
	CallbackSubmit = "wiz:submit"
	CallbackGoTo   = "wiz:goto:"
	CallbackRole   = "role:"
)

// Screen is a rendered bot message.
type Screen struct {
	Text     string
	Keyboard *tgmodels.InlineKeyboardMarkup
}

func FlowTitle(f models.Flow) string {
	switch f {
	case models.FlowScholarProfile:
		return "Scholar profile"
	case models.FlowSponsorProfile:
		return "Sponsor profile"
	case models.FlowScholarship:
		return "Scholarship"
	}
	return string(f)
}

// RenderWizard draws the active step with its current values and the
// navigation keyboard. notice is shown under the fields when not empty.
func RenderWizard(st wizard.State, notice string) Screen {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s · step %d/%d\n", FormatBold(FlowTitle(st.Flow)), st.Index+1, st.Total)
	sb.WriteString(FormatBold(st.Step.Label))
	if st.Submitted {
		sb.WriteString(" " + FormatItalic("(live, edits apply immediately)"))
	}
	sb.WriteString("\n\n")

	if st.Step.Placeholder {
		sb.WriteString(FormatItalic("This step is not available yet."))
	}
	values := fieldValues(st.Values)
	for _, f := range st.Step.Fields {
		name := f.Name
		if f.Required {
			name += "*"
		}
		value := values[f.Name]
		if f.Kind == models.FieldFile {
			for _, p := range st.PendingFiles {
				if p.Field == f.Name {
					value = "pending upload: " + p.Name
				}
			}
		}
		if value == "" {
			value = "—"
		}
		fmt.Fprintf(&sb, "• %s: %s", FormatCode(name), escapeText(value))
		if f.Hint != "" {
			fmt.Fprintf(&sb, " %s", FormatItalic("("+f.Hint+")"))
		}
		sb.WriteString("\n")
	}

	switch {
	case st.Loading:
		sb.WriteString("\n⏳ Loading saved values…")
	case st.Saving:
		sb.WriteString("\n⏳ Saving…")
	}
	if notice != "" {
		sb.WriteString("\n" + notice)
	}

	return Screen{Text: strings.TrimRight(sb.String(), "\n"), Keyboard: wizardKeyboard(st)}
}

func wizardKeyboard(st wizard.State) *tgmodels.InlineKeyboardMarkup {
	nav := []tgmodels.InlineKeyboardButton{}
	if st.Index > 0 {
		nav = append(nav, tgmodels.InlineKeyboardButton{Text: "◀ Back", CallbackData: CallbackPrev})
	}
	nav = append(nav, tgmodels.InlineKeyboardButton{Text: "💾 Save", CallbackData: CallbackSave})
	if st.Index < st.Total-1 {
		nav = append(nav, tgmodels.InlineKeyboardButton{Text: "Save & next ▶", CallbackData: CallbackNext})
	}
	rows := [][]tgmodels.InlineKeyboardButton{nav}

	done := make(map[models.StepKey]bool, len(st.Completed))
	for _, k := range st.Completed {
		done[k] = true
	}
	drafted := make(map[models.StepKey]bool, len(st.Drafted))
	for _, k := range st.Drafted {
		drafted[k] = true
	}
	var row []tgmodels.InlineKeyboardButton
	for _, k := range st.Reachable {
		label := string(k)
		switch {
		case k == st.Active:
			label = "📍 " + label
		case done[k]:
			label = "✅ " + label
		case drafted[k]:
			label = "✏️ " + label
		}
		row = append(row, tgmodels.InlineKeyboardButton{Text: label, CallbackData: CallbackGoTo + string(k)})
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	if st.CanSubmit {
		rows = append(rows, []tgmodels.InlineKeyboardButton{{Text: "📤 Submit scholarship", CallbackData: CallbackSubmit}})
	}
	return &tgmodels.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func RoleKeyboard() *tgmodels.InlineKeyboardMarkup {
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{{
			{Text: "🎓 I'm a scholar", CallbackData: CallbackRole + string(models.RoleScholar)},
			{Text: "🏛 I'm a sponsor", CallbackData: CallbackRole + string(models.RoleSponsor)},
		}},
	}
}

// fieldValues flattens a payload into display strings keyed by JSON field name.
func fieldValues(p models.StepPayload) map[string]string {
	out := map[string]string{}
	if p == nil {
		return out
	}
	data, err := json.Marshal(p)
	if err != nil {
		return out
	}
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return out
	}
	for k, v := range raw {
		out[k] = displayValue(v)
	}
	return out
}

func displayValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "yes"
		}
		return "no"
	case float64:
		return fmt.Sprintf("%g", x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			parts = append(parts, displayValue(item))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+displayValue(x[k]))
		}
		return strings.Join(parts, "; ")
	}
	return fmt.Sprint(v)
}

// DescribeError turns a wizard or backend error into a user-facing line.
// FormatPaymentPending renders a payment that is not settled yet.
func FormatPaymentPending(v *models.PaymentVerification) string {
	return fmt.Sprintf("⏳ Payment %s is still %s.", FormatCode(v.Reference), FormatCode(v.Status))
}

func DescribeError(err error) string {
	var (
		verr   *models.ValidationError
		uerr   *models.UploadError
		ferr   *models.FetchError
		apiErr *apiclient.APIError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		lines := make([]string, 0, len(verr.Violations))
		for _, v := range verr.Violations {
			lines = append(lines, fmt.Sprintf("• %s: %s", FormatCode(v.Field), escapeText(ruleText(v.Rule))))
		}
		return "⚠️ Please fix:\n" + strings.Join(lines, "\n")
	case errors.As(err, &uerr):
		return fmt.Sprintf("❌ Upload of %s failed, nothing was saved. Try again.", FormatCode(uerr.File))
	case errors.As(err, &ferr):
		return "⚠️ Saved values could not be loaded. Tap Save to retry later or keep editing."
	case errors.Is(err, models.ErrSaveInFlight):
		return "⏳ A save is already in progress."
	case errors.Is(err, models.ErrStepLocked):
		return "🔒 Finish the earlier steps first."
	case errors.Is(err, wizard.ErrIncomplete):
		return "⚠️ Every step must be saved before submitting."
	case errors.Is(err, apiclient.ErrUnauthorized):
		return "🔑 Your session expired. Sign in again with /login."
	case errors.Is(err, apiclient.ErrForbidden):
		return "🚫 This account cannot do that."
	case errors.Is(err, apiclient.ErrInvalidID):
		return "⚠️ That id or reference is not valid."
	case errors.Is(err, apiclient.ErrNotFound):
		return "🔍 Not found."
	case errors.As(err, &apiErr):
		return "❌ Server said: " + escapeText(apiErr.Message)
	}
	return "❌ Something went wrong: " + escapeText(err.Error())
}

func ruleText(rule string) string {
	switch rule {
	case "required":
		return "required"
	case "email":
		return "must be an email address"
	case "url":
		return "must be a link"
	case "number":
		return "must be a number"
	case "bool":
		return "answer yes or no"
	case "file":
		return "send it as a document"
	case "unknown":
		return "no such field on this step"
	}
	return "invalid (" + rule + ")"
}

// RenderScholarships lists a page of scholarships with their status.
func RenderScholarships(page models.Page[models.Scholarship], now time.Time) string {
	if len(page.Data) == 0 {
		return "You have no scholarships yet. Start one with /scholarship new"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (page %d of %d)\n\n", FormatBold("Your scholarships"), page.Meta.Page, max(page.Meta.Pages(), 1))
	for _, s := range page.Data {
		title := "Untitled"
		if s.Details != nil && s.Details.Title != "" {
			title = s.Details.Title
		}
		paid := ""
		if s.Funding != nil && s.Funding.IsPaid {
			paid = " 💰"
		}
		fmt.Fprintf(&sb, "• %s%s [%s] %s\n  /scholarship %s\n", FormatBold(title), paid, escapeText(string(s.Status)),
			FormatItalic(FormatTimeAgo(s.CreatedAt, now)), escapeText(s.ID))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RenderAudit lists recent save outcomes.
func RenderAudit(outcomes []models.SaveOutcome, now time.Time) string {
	if len(outcomes) == 0 {
		return "No saves yet."
	}
	var sb strings.Builder
	sb.WriteString(FormatBold("Recent saves") + "\n")
	for _, o := range outcomes {
		mark := "✅"
		if !o.OK {
			mark = "❌"
		}
		fmt.Fprintf(&sb, "%s %s/%s %s", mark, escapeText(string(o.Flow)), escapeText(string(o.Step)), FormatItalic(FormatTimeAgo(o.CreatedAt, now)))
		if o.Error != "" {
			sb.WriteString("\n   " + escapeText(o.Error))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatTimeAgo formats t relative to now, e.g. "3 days ago".
func FormatTimeAgo(t, now time.Time) string {
	diff := now.Sub(t)
	days := int(diff.Hours()) / 24
	hours := int(diff.Hours()) % 24
	minutes := int(diff.Minutes()) % 60

	switch {
	case days > 0:
		return plural(days, "day") + " ago"
	case hours > 0:
		return plural(hours, "hour") + " ago"
	case minutes > 0:
		return plural(minutes, "minute") + " ago"
	}
	return "just now"
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func escapeText(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

func RenderApplications(page models.Page[models.Application], now time.Time) string {
	if len(page.Data) == 0 {
		return "No applications yet."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (page %d of %d)\n\n", FormatBold("Applications"), page.Meta.Page, max(page.Meta.Pages(), 1))
	for _, a := range page.Data {
		fmt.Fprintf(&sb, "• %s for %s [%s] %s\n", FormatCode(a.ID), FormatCode(a.ScholarshipID), escapeText(a.Status),
			FormatItalic(FormatTimeAgo(a.CreatedAt, now)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func RenderTransactions(page models.Page[models.Transaction], now time.Time) string {
	if len(page.Data) == 0 {
		return "No transactions yet."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (page %d of %d)\n\n", FormatBold("Transactions"), page.Meta.Page, max(page.Meta.Pages(), 1))
	for _, t := range page.Data {
		fmt.Fprintf(&sb, "• %s %d %s [%s] %s\n", FormatCode(t.Reference), t.Amount, escapeText(t.Currency), escapeText(t.Status),
			FormatItalic(FormatTimeAgo(t.CreatedAt, now)))
	}
	return strings.TrimRight(sb.String(), "\n")
}
