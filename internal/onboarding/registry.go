package onboarding

// CategoryRole is one entry of the static interest registry. The role name
// on the platform equals the ID; entries are matched by ID, never by
// position.
type CategoryRole struct {
	ID          string
	Label       string
	Description string
	Emoji       string
	// AutoAssign marks roles the reconciler may grant and revoke on its own.
	AutoAssign bool
}

const (
	// SelectionNone is the sentinel "no choice" value. It is recognized in
	// menu payloads and never enters a session's selection set.
	SelectionNone = "none"
	// AllCategoriesID is the explicit "unlock everything" sentinel, checked
	// by identity when composing the welcome message.
	AllCategoriesID = "AllCategories"

	// RoleMember is the base role every completed session ensures.
	RoleMember = "Member"
	// RoleOnboarded marks users who went through the full first-time flow.
	RoleOnboarded = "Onboarded"
)

// Categories is the interest registry, in display order.
var Categories = []CategoryRole{
	{ID: "Newcomer", Label: "Newcomer", Description: "Get to know the people in the community", Emoji: "🌱", AutoAssign: true},
	{ID: "Buidler", Label: "Buidler", Description: "Find resources and share your work", Emoji: "🏗️", AutoAssign: true},
	{ID: "EarlyAdopter", Label: "Early Adopter", Description: "Join the pioneers in the ecosystem", Emoji: "🌅", AutoAssign: true},
	{ID: "Governance", Label: "Governance", Description: "Take part in decision making processes", Emoji: "🏛️", AutoAssign: true},
	{ID: "Research", Label: "Academia and Research", Description: "Deep discussions between researchers", Emoji: "🧑‍🔬", AutoAssign: true},
	{ID: "Speculation", Label: "Speculation/Degen Stuff", Description: "Markets, altcoins and degens", Emoji: "🦍", AutoAssign: true},
}

// AllCategories unlocks every category at once.
var AllCategories = CategoryRole{
	ID:          AllCategoriesID,
	Label:       "Unlock everything",
	Description: "Just like the old times",
	Emoji:       "♾️",
	AutoAssign:  true,
}

// EventsRole and PollsRole are the opt-in notification roles offered as
// yes/no steps rather than menu entries.
var (
	EventsRole = CategoryRole{ID: "Events", Label: "Events", Description: "Subscribed to event pings", AutoAssign: true}
	PollsRole  = CategoryRole{ID: "Polls", Label: "Polls", Description: "Subscribed to poll pings", AutoAssign: true}
)

// JoinReason is one answer to the "why did you join" step. The ID doubles as
// the counter column in the join_reason table.
type JoinReason struct {
	ID    string
	Label string
	Emoji string
}

var JoinReasons = []JoinReason{
	{ID: "hangout", Label: "To hangout with others", Emoji: "🏄"},
	{ID: "help", Label: "To get help with IOTA & Shimmer", Emoji: "✌️"},
	{ID: "develop", Label: "To develop on IOTA & Shimmer", Emoji: "🏡"},
}

// FoundFromSource is one answer to the "how did you find us" poll. The ID
// doubles as the counter column in the found_from table.
type FoundFromSource struct {
	ID          string
	Label       string
	Description string
	Emoji       string
}

var FoundFromSources = []FoundFromSource{
	{ID: "friend", Label: "Friend or colleague", Description: "A friend or colleague of mine introduced IOTA & Shimmer to me", Emoji: "🫂"},
	{ID: "search_engine", Label: "Search Engine", Description: "I found IOTA & Shimmer through a search engine", Emoji: "🔎"},
	{ID: "youtube", Label: "YouTube", Description: "Saw IOTA & Shimmer in a Youtube Video", Emoji: "📺"},
	{ID: "twitter", Label: "Twitter", Description: "Saw people talking about IOTA & Shimmer on a Tweet", Emoji: "🐦"},
	{ID: "market_cap", Label: "MarketCap", Description: "Found on CoinMarketCap/CoinGecko", Emoji: "✨"},
	{ID: "meetup", Label: "Event", Description: "Participated in an IOTA & Shimmer event (Meetup, etc...)", Emoji: "🔗"},
}

// AutoAssignable returns the set of role names the reconciler is allowed to
// revoke: the categories, the all-categories sentinel and the opt-in roles.
// Base roles are never in this set.
func AutoAssignable() map[string]bool {
	auto := make(map[string]bool, len(Categories)+3)
	for _, c := range Categories {
		auto[c.ID] = true
	}
	auto[AllCategories.ID] = true
	auto[EventsRole.ID] = true
	auto[PollsRole.ID] = true
	return auto
}

// CategoryByID looks up a registry entry by its stable identifier.
func CategoryByID(id string) (CategoryRole, bool) {
	if id == AllCategories.ID {
		return AllCategories, true
	}
	for _, c := range Categories {
		if c.ID == id {
			return c, true
		}
	}
	return CategoryRole{}, false
}
