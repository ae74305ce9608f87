package recipe

import (
	"bytes"
	"encoding/json"
	"strings"
)

// GenerationRequest is the payload sent to the recipe generation backend.
type GenerationRequest struct {
	Ingredients        []string `json:"ingredients"`
	UserID             string   `json:"user_id"`
	DietaryPreferences []string `json:"dietary_preferences"`
	CookingTime        int      `json:"cooking_time"`
	Difficulty         string   `json:"difficulty"`
	Servings           int      `json:"servings"`
}

// NewGenerationRequest normalizes client input into the backend payload.
// Zero or empty values are treated as absent and replaced by defaults.
func NewGenerationRequest(userID string, ingredients []string, preferences []string, cookingTime int, difficulty string, servings int) (*GenerationRequest, error) {
	if len(ingredients) == 0 {
		return nil, ErrNoIngredients
	}
	if preferences == nil {
		preferences = []string{}
	}
	if cookingTime == 0 {
		cookingTime = DefaultCookingTime
	}
	if difficulty == "" {
		difficulty = DefaultDifficulty
	}
	if servings == 0 {
		servings = DefaultServings
	}

	return &GenerationRequest{
		Ingredients:        ingredients,
		UserID:             userID,
		DietaryPreferences: preferences,
		CookingTime:        cookingTime,
		Difficulty:         difficulty,
		Servings:           servings,
	}, nil
}

// GeneratedRecipe is the backend's answer. Every field is optional.
type GeneratedRecipe struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	CookingTime  CookingTime  `json:"cooking_time"`
	Difficulty   string       `json:"difficulty"`
	Servings     int          `json:"servings"`
}

// ToRecipe reshapes a generated recipe into a new row owned by userID.
func (g *GeneratedRecipe) ToRecipe(userID string) *Recipe {
	ingredients := make([]Ingredient, 0, len(g.Ingredients))
	for _, ing := range g.Ingredients {
		ingredients = append(ingredients, Ingredient{
			Name:   ing.Name,
			Amount: ing.Amount,
			Unit:   ing.Unit,
		})
	}

	return NewRecipe(
		userID,
		g.Title,
		g.Description,
		ingredients,
		g.Instructions,
		g.CookingTime,
		g.Difficulty,
		g.Servings,
	)
}

// IngredientList is the client's ingredient input. Entries may be plain
// names or objects with a "name" field. Anything that is not an array
// decodes as an empty list.
type IngredientList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *IngredientList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		*l = nil
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	names := make([]string, 0, len(raw))
	for _, item := range raw {
		var name string
		if err := json.Unmarshal(item, &name); err != nil {
			var obj struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(item, &obj); err != nil {
				continue
			}
			name = obj.Name
		}
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	*l = names
	return nil
}
