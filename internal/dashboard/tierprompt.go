package dashboard

import "github.com/charmbracelet/huh"

// PromptTier asks the operator to pick a tier interactively, used the first
// time a ticket runs with PIPELINE_TIER=auto and no phase0 output exists yet
// to estimate scope from (see tier.ResolveTier).
func PromptTier() (string, error) {
	tiers := []string{"nano", "quick", "standard", "full"}
	selected := "standard"

	options := make([]huh.Option[string], len(tiers))
	for i, t := range tiers {
		options[i] = huh.NewOption(t, t)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("No prior scope estimate found -- pick a tier for this run").
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}
