package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirbrooks/taskline/internal/caldate"
	"github.com/amirbrooks/taskline/internal/task"
)

func TestDeserializeEmptyLine(t *testing.T) {
	got := Default(task.TwelveHour).Deserialize("")
	want := task.New()
	assert.True(t, got.Identical(&want))
}

func TestDeserializeDates(t *testing.T) {
	s := Default(task.TwelveHour)
	cases := []struct {
		symbol string
		field  func(*task.Task) *caldate.Date
	}{
		{"🛫", func(t *task.Task) *caldate.Date { return t.StartDate }},
		{"➕", func(t *task.Task) *caldate.Date { return t.CreatedDate }},
		{"⏳", func(t *task.Task) *caldate.Date { return t.ScheduledDate }},
		{"📅", func(t *task.Task) *caldate.Date { return t.DueDate }},
		{"✅", func(t *task.Task) *caldate.Date { return t.DoneDate }},
	}
	for _, tc := range cases {
		tk := s.Deserialize(tc.symbol + " 2021-06-20")
		d := tc.field(&tk)
		require.NotNil(t, d, tc.symbol)
		assert.True(t, d.Same(caldate.MustParse("2021-06-20")), tc.symbol)
		assert.Equal(t, "", tk.Description, tc.symbol)
	}
}

func TestDeserializePriority(t *testing.T) {
	s := Default(task.TwelveHour)
	for p, sym := range DefaultSymbols.Priority {
		tk := s.Deserialize(sym)
		assert.Equal(t, p, tk.Priority, sym)
	}
	assert.Equal(t, task.PriorityNone, s.Deserialize("nothing special").Priority)
}

func TestDeserializeRecurrence(t *testing.T) {
	tk := Default(task.TwelveHour).Deserialize("🔁 every day")
	require.NotNil(t, tk.Recurrence)
	assert.Equal(t, "every day", tk.Recurrence.Rule)
	assert.True(t, tk.Recurrence.Valid())
}

func TestDeserializeTagsStayInDescription(t *testing.T) {
	description := " #hello #world #task"
	tk := Default(task.TwelveHour).Deserialize(description)
	assert.Equal(t, description, tk.Description)
	assert.Equal(t, []string{"#hello", "#world", "#task"}, tk.Tags)
}

func TestDeserializeTagsMixedWithFields(t *testing.T) {
	tk := Default(task.TwelveHour).Deserialize("Pay rent #home 📅 2021-06-20 #money ⏫")
	assert.Equal(t, "Pay rent #home #money", tk.Description)
	assert.Equal(t, []string{"#home", "#money"}, tk.Tags)
	assert.Equal(t, task.PriorityHigh, tk.Priority)
	require.NotNil(t, tk.DueDate)
	assert.Equal(t, "2021-06-20", tk.DueDate.String())
}

func TestDeserializeReminders(t *testing.T) {
	s := Default(task.TwelveHour)

	single := s.Deserialize("⏲️ 2021-06-20")
	require.Len(t, single.Reminders.Reminders, 1)
	assert.Equal(t, task.ReminderDate, single.Reminders.Reminders[0].Type)

	timed := s.Deserialize("⏲️ 2021-06-20 10:00 am")
	require.Len(t, timed.Reminders.Reminders, 1)
	assert.Equal(t, task.ReminderDateTime, timed.Reminders.Reminders[0].Type)

	multi := s.Deserialize("⏲️ 2021-06-20 10:00 am, 2021-06-21")
	require.Len(t, multi.Reminders.Reminders, 2)
	assert.Equal(t, task.ReminderDateTime, multi.Reminders.Reminders[0].Type)
	assert.Equal(t, task.ReminderDate, multi.Reminders.Reminders[1].Type)
	assert.Equal(t, " ⏲️ 2021-06-20 10:00 am, 2021-06-21", s.Serialize(multi))
}

func TestDeserializeReminderWithoutVariationSelector(t *testing.T) {
	tk := Default(task.TwentyFourHour).Deserialize("Stretch ⏲ 2023-05-03 13:57")
	require.Len(t, tk.Reminders.Reminders, 1)
	assert.Equal(t, "Stretch", tk.Description)
	assert.Equal(t, "2023-05-03 13:57", tk.Reminders.Format(task.TwentyFourHour))
}

func TestDeserializeMalformedDateIsInvalidNotMissing(t *testing.T) {
	s := Default(task.TwelveHour)
	tk := s.Deserialize("Fix it 📅 2021-13-45")
	require.NotNil(t, tk.DueDate)
	assert.False(t, tk.DueDate.IsValid())
	assert.Equal(t, "Fix it 📅 2021-13-45", s.Serialize(tk))
}

func TestDeserializeBlockLink(t *testing.T) {
	s := Default(task.TwelveHour)
	tk := s.Deserialize("Write report 📅 2021-06-20 ^abc-123")
	assert.Equal(t, "abc-123", tk.BlockLink)
	assert.Equal(t, "Write report", tk.Description)
	assert.Equal(t, "Write report 📅 2021-06-20 ^abc-123", s.Serialize(tk))
}

func TestSerializeEmptyTask(t *testing.T) {
	assert.Equal(t, "", Default(task.TwelveHour).Serialize(task.New()))
}

func TestSerializeSingleFields(t *testing.T) {
	s := Default(task.TwelveHour)
	d := caldate.Ptr(caldate.MustParse("2021-06-20"))

	cases := map[string]func(*task.Task){
		" ➕ 2021-06-20": func(t *task.Task) { t.CreatedDate = d },
		" 🛫 2021-06-20": func(t *task.Task) { t.StartDate = d },
		" ⏳ 2021-06-20": func(t *task.Task) { t.ScheduledDate = d },
		" 📅 2021-06-20": func(t *task.Task) { t.DueDate = d },
		" ✅ 2021-06-20": func(t *task.Task) { t.DoneDate = d },
		" ⏫":            func(t *task.Task) { t.Priority = task.PriorityHigh },
		" 🔼":            func(t *task.Task) { t.Priority = task.PriorityMedium },
		" 🔽":            func(t *task.Task) { t.Priority = task.PriorityLow },
		" 🔁 every day":  func(t *task.Task) { t.Recurrence = task.NewRecurrence("every day") },
		" ⏲️ 2021-06-20": func(t *task.Task) {
			t.Reminders = task.ParseReminderList("2021-06-20", task.TwelveHour)
		},
		" ⏲️ 2021-06-20 5:00 pm, 2021-06-21": func(t *task.Task) {
			t.Reminders = task.ParseReminderList("2021-06-20 5:00 pm, 2021-06-21", task.TwelveHour)
		},
	}
	for want, set := range cases {
		tk := task.New()
		set(&tk)
		assert.Equal(t, want, s.Serialize(tk))
	}

	none := task.New()
	none.Priority = task.PriorityNone
	assert.Equal(t, "", s.Serialize(none))
}

func TestSerializeTagsFromDescription(t *testing.T) {
	tk := task.New().WithDescription(" #hello #world #task")
	assert.Equal(t, " #hello #world #task", Default(task.TwelveHour).Serialize(tk))
}

func TestRoundTrip(t *testing.T) {
	s := Default(task.TwelveHour)
	tk := task.New().WithDescription("Plan trip #travel #family")
	tk.Priority = task.PriorityHighest
	tk.CreatedDate = caldate.Ptr(caldate.MustParse("2021-06-01"))
	tk.StartDate = caldate.Ptr(caldate.MustParse("2021-06-10"))
	tk.ScheduledDate = caldate.Ptr(caldate.MustParse("2021-06-15"))
	tk.DueDate = caldate.Ptr(caldate.MustParse("2021-06-20"))
	tk.DoneDate = caldate.Ptr(caldate.MustParse("2021-06-19"))
	tk.Recurrence = task.NewRecurrence("every 2 weeks")
	tk.Reminders = task.ParseReminderList("2021-06-18 9:30 am, 2021-06-19", task.TwelveHour)
	tk.BlockLink = "trip"

	line := s.Serialize(tk)
	assert.Equal(t, "Plan trip #travel #family 🔺 ➕ 2021-06-01 🛫 2021-06-10 ⏳ 2021-06-15 📅 2021-06-20 ✅ 2021-06-19 🔁 every 2 weeks ⏲️ 2021-06-18 9:30 am, 2021-06-19 ^trip", line)

	back := s.Deserialize(line)
	assert.True(t, back.Identical(&tk), "round trip changed the task: %#v", back)
	assert.Equal(t, line, s.Serialize(back))
}

func TestRoundTripTwentyFourHour(t *testing.T) {
	s := Default(task.TwentyFourHour)
	line := "Standup ⏲️ 2023-05-03 13:57"
	tk := s.Deserialize(line)
	assert.Equal(t, line, s.Serialize(tk))
}
