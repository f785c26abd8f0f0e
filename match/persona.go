package match

// PersonalityProfile defines the tunable parameters for a RuleBrain.
type PersonalityProfile struct {
	Aggression   float64 `json:"aggression"`   // 0.0-1.0: tendency to press with big commitments
	Bluffing     float64 `json:"bluffing"`     // 0.0-1.0: bluff move frequency
	Adaptability float64 `json:"adaptability"` // 0.0-1.0: weight given to observed opponent history
	Randomness   float64 `json:"randomness"`   // 0.0-1.0: decision noise
}

// Persona is a named agent character.
type Persona struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Tagline string             `json:"tagline"`
	Brain   PersonalityProfile `json:"brain"`
}

var personas = map[string]Persona{
	"aggressive": {
		ID:      "aggressive",
		Name:    "The Berserker",
		Tagline: "Every round is all in.",
		Brain:   PersonalityProfile{Aggression: 0.85, Bluffing: 0.4, Adaptability: 0.2, Randomness: 0.15},
	},
	"defensive": {
		ID:      "defensive",
		Name:    "The Wall",
		Tagline: "Outlast, then strike.",
		Brain:   PersonalityProfile{Aggression: 0.2, Bluffing: 0.15, Adaptability: 0.35, Randomness: 0.1},
	},
	"adaptive": {
		ID:      "adaptive",
		Name:    "The Mirror",
		Tagline: "Becomes whatever beats you.",
		Brain:   PersonalityProfile{Aggression: 0.5, Bluffing: 0.3, Adaptability: 0.9, Randomness: 0.2},
	},
	"chaotic": {
		ID:      "chaotic",
		Name:    "The Coin",
		Tagline: "Unreadable by construction.",
		Brain:   PersonalityProfile{Aggression: 0.5, Bluffing: 0.5, Adaptability: 0.1, Randomness: 0.95},
	},
}

// PersonaByID looks up a persona; unknown ids fall back to adaptive.
func PersonaByID(id string) Persona {
	if p, ok := personas[id]; ok {
		return p
	}
	return personas["adaptive"]
}

// PersonaIDs lists the available personalities.
func PersonaIDs() []string {
	return []string{"aggressive", "defensive", "adaptive", "chaotic"}
}
