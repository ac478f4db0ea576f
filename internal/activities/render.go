package activities

// Fixed copy shown by the list view.
const (
	NoActivitiesNotice   = "No activities found."
	NoParticipantsNotice = "No participants yet"
	LoadFailedNotice     = "Failed to load activities. Please try again later."
	SelectPlaceholder    = "-- Select an activity --"
	AllCategoriesLabel   = "All Categories"
)

type ParticipantRow struct {
	Activity string
	Email    string
}

type Card struct {
	Name         string
	Description  string
	Schedule     string
	Category     string
	SpotsLeft    int
	Participants []ParticipantRow
}

type CategoryOption struct {
	Value    string
	Label    string
	Selected bool
}

// View is everything the list area and the activity selector show for one
// render. It is rebuilt from scratch every time.
type View struct {
	Cards []Card
	// Options feeds the signup selector, in the same order as Cards.
	Options []string
}

func (v View) Empty() bool {
	return len(v.Cards) == 0
}

// Render turns pipeline output into cards and selector options.
func Render(entries []Entry) View {
	v := View{
		Cards:   make([]Card, 0, len(entries)),
		Options: make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		card := Card{
			Name:        e.Name,
			Description: e.Activity.Description,
			Schedule:    e.Activity.Schedule,
			Category:    e.Activity.DisplayCategory(),
			SpotsLeft:   e.Activity.SpotsLeft(),
		}
		for _, email := range e.Activity.Participants {
			card.Participants = append(card.Participants, ParticipantRow{Activity: e.Name, Email: email})
		}
		v.Cards = append(v.Cards, card)
		v.Options = append(v.Options, e.Name)
	}
	return v
}

// CategoryOptions builds the category control: the "All Categories" sentinel
// followed by one option per category.
func CategoryOptions(categories []string, selected string) []CategoryOption {
	opts := make([]CategoryOption, 0, len(categories)+1)
	opts = append(opts, CategoryOption{Value: "", Label: AllCategoriesLabel, Selected: selected == ""})
	for _, c := range categories {
		opts = append(opts, CategoryOption{Value: c, Label: c, Selected: c == selected})
	}
	return opts
}
