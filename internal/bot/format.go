package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskplanner/internal/focus"
	"taskplanner/internal/model"
	"taskplanner/internal/query"
	"taskplanner/internal/service"
)

const (
	btnSkip          = "⏭️ Skip"
	btnConfirm       = "✅ Confirm"
	btnCancel        = "↩️ Cancel"
	btnCancelDialog  = "⏪ Stop input"
	iconDefault      = "🟢"
	iconDue          = "⏳"
	iconOverdue      = "⚠️"
	iconDone         = "✔️"
	iconRepeat       = "♻️"
	menuLabelNewTask = "➕ New task"
	menuLabelTasks   = "📋 Tasks"
	menuLabelPlan    = "🎯 Plan"
	menuLabelHelp    = "ℹ️ Help"
)

// dateOnlyHour is the time of day given to dues entered without one.
const dateOnlyHour = 9

const helpText = "• /newtask — add a task step by step\n" +
	"• /add title | note | due | priority | tag | repeat — add in one line\n" +
	"• /tasks — show the list\n" +
	"• /search &lt;text&gt;, /filter, /sort, /group — shape the list\n" +
	"• /done &lt;id&gt; — toggle completion\n" +
	"• /delete &lt;id&gt; — delete a task\n" +
	"• /plan, /tomorrow — today's and tomorrow's plan\n" +
	"• /planset [today|tomorrow] &lt;ids&gt; — rank up to 6 tasks\n" +
	"• /unplan &lt;id&gt; — drop a task from its plan\n" +
	"• /calendar [yyyy-mm-dd], /dates — due dates\n" +
	"• /focus [id] [focus break sets], /pause, /resume, /stop, /status — focus timer\n" +
	"• /report — daily digest\n" +
	"• /cancel — stop the current input"

var dueLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"}

// parseDue reads a due time in loc. A bare date gets dateOnlyHour.
func parseDue(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dueLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err != nil {
			continue
		}
		if layout == service.DateLayout {
			t = t.Add(dateOnlyHour * time.Hour)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot read due time %q", raw)
}

// parseTaskLine reads "title | note | due | priority | tag | repeat". Only
// the title is required; repeat is "daily", "weekly:2" and so on.
func parseTaskLine(line string, loc *time.Location) (service.TaskInput, error) {
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	field := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}

	input := service.TaskInput{Title: field(0), Note: field(1)}
	if input.Title == "" {
		return input, fmt.Errorf("the title is required")
	}
	if raw := field(2); raw != "" {
		due, err := parseDue(raw, loc)
		if err != nil {
			return input, err
		}
		input.DueAt = &due
	}
	priority, err := model.ParsePriority(field(3))
	if err != nil {
		return input, err
	}
	input.Priority = priority
	tag, err := model.ParseTag(field(4))
	if err != nil {
		return input, err
	}
	input.Tag = tag
	if raw := field(5); raw != "" {
		rule, err := parseRepeat(raw)
		if err != nil {
			return input, err
		}
		input.Repeat = &rule
	}
	return input, nil
}

func parseRepeat(raw string) (model.Recurrence, error) {
	kind, every, _ := strings.Cut(raw, ":")
	rt, err := model.ParseRepeatType(kind)
	if err != nil {
		return model.Recurrence{}, err
	}
	rule := model.Recurrence{Type: rt, Interval: 1}
	if every != "" {
		n, err := strconv.Atoi(strings.TrimSpace(every))
		if err != nil || n < 1 {
			return model.Recurrence{}, fmt.Errorf("repeat interval must be a positive number")
		}
		rule.Interval = n
	}
	return rule, nil
}

func parseID(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}

func joinNames[T fmt.Stringer](values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = v.String()
	}
	return strings.Join(names, " | ")
}

func formatParams(p query.Params) string {
	text := fmt.Sprintf("%s · %s · %s", p.Filter, p.Sort, p.Group)
	if p.Query != "" {
		text += fmt.Sprintf(" · “%s”", escape(p.Query))
	}
	return text
}

func formatTask(task model.Task, now time.Time) string {
	var b strings.Builder
	icon := iconDefault
	switch {
	case task.IsDone:
		icon = iconDone
	case task.DueAt != nil && now.After(*task.DueAt):
		icon = iconOverdue
	case task.DueAt != nil && task.DueAt.Sub(now) <= 24*time.Hour:
		icon = iconDue
	}
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s <i>(%s, %s)</i>\n", icon, task.ID, escape(normalizeTitle(task.Title)),
		strings.ToLower(string(task.Priority)), strings.ToLower(strings.ReplaceAll(string(task.Tag), "_", " "))))
	if task.DueAt != nil {
		d := task.DueAt.In(now.Location())
		if !task.IsDone && now.After(d) {
			b.WriteString(fmt.Sprintf("   ⏰ %s · <b>overdue</b>\n", d.Format("2006-01-02 15:04")))
		} else {
			b.WriteString(fmt.Sprintf("   ⏰ %s\n", d.Format("2006-01-02 15:04")))
		}
	}
	if rule, ok := task.Recurrence(); ok {
		b.WriteString(fmt.Sprintf("   %s every %d × %s\n", iconRepeat, rule.Interval, strings.ToLower(string(rule.Type))))
	}
	if task.Planned() && task.IvyRank != nil {
		b.WriteString(fmt.Sprintf("   🎯 #%d in plan %s\n", *task.IvyRank, *task.IvyDate))
	}
	if task.Note != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(task.Note)))
	}
	return b.String()
}

func formatPlan(header string, plan []model.Task) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	if len(plan) == 0 {
		b.WriteString("— empty. Pick tasks with /planset")
		return b.String()
	}
	for _, task := range plan {
		mark := "▫️"
		if task.IsDone {
			mark = "✅"
		}
		rank := 0
		if task.IvyRank != nil {
			rank = *task.IvyRank
		}
		b.WriteString(fmt.Sprintf("%d. %s %s <i>#%d</i>\n", rank, mark, escape(normalizeTitle(task.Title)), task.ID))
	}
	return strings.TrimSpace(b.String())
}

func formatFocus(st focus.State) string {
	title := st.TaskTitle
	if title == "" {
		title = "Focus"
	}
	remaining := st.Remaining.Round(time.Second)
	text := fmt.Sprintf("<b>%s</b> · %s · %02d:%02d left · set %d/%d",
		escape(title), st.Phase, int(remaining.Minutes()), int(remaining.Seconds())%60, st.CurrentSet, st.TotalSets)
	if st.Paused {
		text += " (paused)"
	}
	return text
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func escape(s string) string {
	return html.EscapeString(s)
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "confirm" || value == "yes"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "cancel" || value == "no"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "stop input"
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelPlan),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func priorityKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("high"),
			tgbotapi.NewKeyboardButton("medium"),
			tgbotapi.NewKeyboardButton("low"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func tagKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("do now"),
			tgbotapi.NewKeyboardButton("schedule"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("delegate"),
			tgbotapi.NewKeyboardButton("eliminate"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}
