package mcpserver

// ScoringContract explains how recorded progress is scored, for LLM
// consumers that report on or add to a profile.
const ScoringContract = `# Life Matrix Scoring

Each dimension (Health, Career, ...) holds an experience score. Recording
progress adds one point to one dimension.

## Levels

- Below 5 experience the level is 0.
- Level L is reached at L*L + 4*L experience: 5, 12, 21, 32, 45, ...
- Progress is the percentage of the way from the current level's threshold
  to the next one.

## Totals

- **Total level** applies the same curve to the sum of all scores.
- **Balance** is 100 minus the coefficient of variation of the scores, in
  percent, floored at 0. Equal scores give 100. A profile with no
  experience also gives 100.

## Dimensions

- Dimensions are toggled on or off, never reordered or removed. Scores stay
  attached to their position, so ` + "`" + `index` + "`" + ` in record_progress is the position
  in the full list, inactive dimensions included.
- The radar chart needs at least three active dimensions.

## History

- Each entry records the dimension name and colour at the time, the text and
  any ` + "`" + `#hashtags` + "`" + ` found in it.
- Only the 100 most recent entries are kept.
`
