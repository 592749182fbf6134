package mapper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/scholarship-agent/internal/types"
)

type fakeFiller struct {
	texts   map[string]string
	selects map[string]string
	clicks  []string
	errs    map[string]error
	calls   int
}

func newFakeFiller() *fakeFiller {
	return &fakeFiller{texts: map[string]string{}, selects: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeFiller) SetText(_ context.Context, selector, value string) error {
	f.calls++
	if err := f.errs[selector]; err != nil {
		return err
	}
	f.texts[selector] = value
	return nil
}

func (f *fakeFiller) SelectOption(_ context.Context, selector, option string) error {
	f.calls++
	if err := f.errs[selector]; err != nil {
		return err
	}
	f.selects[selector] = option
	return nil
}

func (f *fakeFiller) Click(_ context.Context, selector string) error {
	if err := f.errs[selector]; err != nil {
		return err
	}
	f.clicks = append(f.clicks, selector)
	return nil
}

type fakeWriter struct {
	prompts []string
	essays  []string
	answer  string
	err     error
}

func (w *fakeWriter) WriteEssay(_ context.Context, prompt, essays string) (string, error) {
	w.prompts = append(w.prompts, prompt)
	w.essays = append(w.essays, essays)
	return w.answer, w.err
}

func alexLee() *types.Profile {
	return &types.Profile{
		Name:        "Alex Lee",
		GradeLevel:  "12",
		School:      "Lincoln HS",
		GPAWeighted: "3.9",
		Race:        "Asian",
		Essays:      []string{"I built a robot.", "I tutor kids."},
	}
}

func alexLeeForm() []types.PageFieldDescriptor {
	return []types.PageFieldDescriptor{
		{Label: "Full Name", Kind: types.KindText, Selector: "#a"},
		{Label: "High School", Kind: types.KindText, Selector: "#b"},
		{Label: "Weighted GPA", Kind: types.KindText, Selector: "#c"},
		{Label: "Submit", Kind: types.KindSubmit, Selector: "#s"},
	}
}

func TestMapAndFill_AlexLee(t *testing.T) {
	for _, live := range []bool{false, true} {
		filler := newFakeFiller()
		m := New(filler, &fakeWriter{}, nil)

		report, err := m.MapAndFill(context.Background(), alexLeeForm(), alexLee())
		require.NoError(t, err)
		assert.Equal(t, 3, report.Filled())
		assert.Equal(t, map[string]string{"#a": "Alex Lee", "#b": "Lincoln HS", "#c": "3.9"}, filler.texts)

		res, found, err := m.Submit(context.Background(), alexLeeForm(), nil, live)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "#s", res.Selector)
		if live {
			assert.Equal(t, ActionClicked, res.Action)
			assert.Equal(t, []string{"#s"}, filler.clicks)
		} else {
			assert.Equal(t, ActionWouldClick, res.Action)
			assert.Empty(t, filler.clicks)
		}
	}
}

func TestPlan_FirstRuleWins(t *testing.T) {
	tests := []struct {
		name  string
		field types.PageFieldDescriptor
		rule  string
	}{
		{"name beats school", types.PageFieldDescriptor{Label: "School Name Verification", Kind: types.KindText, Selector: "#x"}, "name"},
		{"applicant full name", types.PageFieldDescriptor{Label: "Applicant Full Name", Kind: types.KindText, Selector: "#x"}, "name"},
		{"name attribute only", types.PageFieldDescriptor{Kind: types.KindText, Selector: "#x", Name: "student_school"}, "school"},
		{"placeholder", types.PageFieldDescriptor{Kind: types.KindText, Selector: "#x", Placeholder: "GPA (weighted)"}, "gpa"},
		{"email id", types.PageFieldDescriptor{Kind: types.KindText, Selector: "#x", ID: "contactEmail"}, "email"},
		{"personal statement text", types.PageFieldDescriptor{Label: "Personal Statement", Kind: types.KindText, Selector: "#x"}, "essay"},
		{"any textarea", types.PageFieldDescriptor{Label: "Tell us about yourself", Kind: types.KindTextarea, Selector: "#x"}, "essay"},
		{"select race", types.PageFieldDescriptor{Label: "Race", Kind: types.KindSelect, Selector: "#x"}, "race"},
	}
	m := New(newFakeFiller(), nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := alexLee()
			p.Email = "alex@example.com"
			plan, skipped := m.Plan([]types.PageFieldDescriptor{tt.field}, p)
			require.Empty(t, skipped)
			require.Len(t, plan, 1)
			assert.Equal(t, tt.rule, plan[0].Rule)
		})
	}
}

func TestPlan_SkipsUnmatchedAndEmpty(t *testing.T) {
	m := New(newFakeFiller(), nil, nil)
	plan, skipped := m.Plan([]types.PageFieldDescriptor{
		{Label: "Phone", Kind: types.KindText, Selector: "#phone"},
		{Label: "Email", Kind: types.KindText, Selector: "#email"},
		{Label: "Full Name", Kind: types.KindText, Selector: ""},
	}, alexLee())
	assert.Empty(t, plan)
	require.Len(t, skipped, 2)
	assert.Equal(t, "no matching rule", skipped[0].Reason)
	assert.Equal(t, "profile has no email", skipped[1].Reason)
}

func TestPlan_DeterministicAndOrderIndependent(t *testing.T) {
	m := New(newFakeFiller(), nil, nil)
	form := alexLeeForm()
	first, _ := m.Plan(form, alexLee())
	again, _ := m.Plan(form, alexLee())
	assert.Equal(t, first, again)

	reversed := []types.PageFieldDescriptor{form[3], form[2], form[1], form[0]}
	rev, _ := m.Plan(reversed, alexLee())

	values := func(plan []Assignment) map[string]string {
		out := map[string]string{}
		for _, a := range plan {
			out[a.Field.Selector] = a.Value
		}
		return out
	}
	assert.Equal(t, values(first), values(rev))
}

func TestMapAndFill_NoFieldFilledTwice(t *testing.T) {
	filler := newFakeFiller()
	form := []types.PageFieldDescriptor{
		{Label: "Full Name", Kind: types.KindText, Selector: "#a"},
		{Label: "Name (again)", Kind: types.KindText, Selector: "#a"},
	}
	report, err := New(filler, nil, nil).MapAndFill(context.Background(), form, alexLee())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Filled())
	assert.Equal(t, 1, filler.calls)
}

func TestMapAndFill_EmptySelectorIgnored(t *testing.T) {
	filler := newFakeFiller()
	form := []types.PageFieldDescriptor{
		{Label: "Full Name", Kind: types.KindText, Selector: "  "},
		{Label: "High School", Kind: types.KindText, Selector: "#b"},
	}
	report, err := New(filler, nil, nil).MapAndFill(context.Background(), form, alexLee())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Filled())
	assert.Equal(t, map[string]string{"#b": "Lincoln HS"}, filler.texts)
}

func TestMapAndFill_SelectRequiresExactOption(t *testing.T) {
	filler := newFakeFiller()
	form := []types.PageFieldDescriptor{
		{Label: "Race", Kind: types.KindSelect, Selector: "#race", Options: []string{"asian", "Black or African American"}},
		{Label: "Full Name", Kind: types.KindText, Selector: "#a"},
	}
	report, err := New(filler, nil, nil).MapAndFill(context.Background(), form, alexLee())
	require.NoError(t, err)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "#race", failed[0].Selector)
	assert.Contains(t, failed[0].Reason, `"Asian"`)
	assert.Empty(t, filler.selects)
	assert.Equal(t, 1, report.Filled(), "failure is not fatal to the rest of the form")
}

func TestMapAndFill_SelectExactMatch(t *testing.T) {
	filler := newFakeFiller()
	form := []types.PageFieldDescriptor{
		{Label: "Race", Kind: types.KindSelect, Selector: "#race", Options: []string{"Choose", "Asian"}},
	}
	report, err := New(filler, nil, nil).MapAndFill(context.Background(), form, alexLee())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Filled())
	assert.Equal(t, map[string]string{"#race": "Asian"}, filler.selects)
}

func TestMapAndFill_Essay(t *testing.T) {
	tests := []struct {
		name   string
		field  types.PageFieldDescriptor
		prompt string
	}{
		{"prompt text", types.PageFieldDescriptor{Label: "Essay 1", Kind: types.KindTextarea, Selector: "#e", Prompt: "Describe a challenge."}, "Describe a challenge."},
		{"label fallback", types.PageFieldDescriptor{Label: "Why you?", Kind: types.KindTextarea, Selector: "#e"}, "Why you?"},
		{"placeholder fallback", types.PageFieldDescriptor{Kind: types.KindTextarea, Selector: "#e", Placeholder: "Your goals"}, "Your goals"},
		{"id fallback", types.PageFieldDescriptor{Kind: types.KindTextarea, Selector: "#e", ID: "essay_goals"}, "essay_goals"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filler := newFakeFiller()
			writer := &fakeWriter{answer: "My essay."}
			report, err := New(filler, writer, nil).MapAndFill(context.Background(), []types.PageFieldDescriptor{tt.field}, alexLee())
			require.NoError(t, err)
			assert.Equal(t, []string{tt.prompt}, writer.prompts)
			assert.Contains(t, writer.essays[0], "I built a robot.")
			assert.Contains(t, writer.essays[0], "I tutor kids.")
			assert.Equal(t, "My essay.", filler.texts["#e"])
			assert.Equal(t, 1, report.Filled())
		})
	}
}

func TestMapAndFill_EssayFailureRecorded(t *testing.T) {
	filler := newFakeFiller()
	writer := &fakeWriter{err: errors.New("quota exceeded")}
	form := []types.PageFieldDescriptor{
		{Label: "Essay", Kind: types.KindTextarea, Selector: "#e"},
		{Label: "Full Name", Kind: types.KindText, Selector: "#a"},
	}
	report, err := New(filler, writer, nil).MapAndFill(context.Background(), form, alexLee())
	require.NoError(t, err)
	require.Len(t, report.Failed(), 1)
	assert.Contains(t, report.Failed()[0].Reason, "quota exceeded")
	assert.Equal(t, "Alex Lee", filler.texts["#a"])
}

func TestMapAndFill_FillErrorContinues(t *testing.T) {
	filler := newFakeFiller()
	filler.errs["#a"] = errors.New("element not interactable")
	report, err := New(filler, nil, nil).MapAndFill(context.Background(), alexLeeForm(), alexLee())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Filled())
	assert.Len(t, report.Failed(), 1)
}

func TestMapAndFill_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(newFakeFiller(), nil, nil).MapAndFill(ctx, alexLeeForm(), alexLee())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChooseSubmit(t *testing.T) {
	form := []types.PageFieldDescriptor{
		{Label: "Save draft", Kind: types.KindSubmit, Selector: "#save"},
		{Label: "Next", Kind: types.KindSubmit, Selector: "#next1"},
		{Label: "Next page", Kind: types.KindSubmit, Selector: "#next2"},
		{Label: "Submit", Kind: types.KindText, Selector: "#not-a-button"},
	}
	d, ok := ChooseSubmit(form, nil)
	require.True(t, ok)
	assert.Equal(t, "#next1", d.Selector, "keyword order first, then document order")

	_, ok = ChooseSubmit(form, []string{"submit"})
	assert.False(t, ok)
}

func TestSubmit_NoAffordance(t *testing.T) {
	filler := newFakeFiller()
	res, found, err := New(filler, nil, nil).Submit(context.Background(), nil, nil, true)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, ActionSkipped, res.Action)
	assert.Empty(t, filler.clicks)
}
