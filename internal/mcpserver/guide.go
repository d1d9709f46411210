package mcpserver

// FormatGuide explains filename formats and template tokens to LLM clients
// before they change settings or write templates.
const FormatGuide = `# Periodic Note Format Guide

Every periodic note (daily, weekly, monthly, quarterly, yearly) is a Markdown
file whose name is the period's date rendered with the granularity's format.

## Filename formats

| Token            | Meaning                                  | Example      |
|------------------|------------------------------------------|--------------|
| ` + "`YYYY`" + `           | four-digit year                          | 2024         |
| ` + "`Q`" + `              | quarter                                  | 1            |
| ` + "`MM` / `M`" + `       | month, padded / unpadded                 | 03 / 3       |
| ` + "`MMM` / `MMMM`" + `   | month name, short / long                 | Mar / March  |
| ` + "`DD` / `D`" + `       | day of month                             | 05 / 5       |
| ` + "`ddd` / `dddd`" + `   | weekday name                             | Fri / Friday |
| ` + "`gggg` / `ww`" + `    | locale week-year / week                  | 2024 / 11    |
| ` + "`GGGG` / `WW`" + `    | ISO week-year / week                     | 2024 / 11    |
| ` + "`[text]`" + `         | literal text                             | [W] -> W     |

Defaults: day ` + "`YYYY-MM-DD`" + `, week ` + "`gggg-[W]ww`" + `, month ` + "`YYYY-MM`" + `,
quarter ` + "`YYYY-[Q]Q`" + `, year ` + "`YYYY`" + `.

## Rules

1. A format must render today's date and parse it back to the same text.
2. It must pin down exactly one period: ` + "`YYYY-MM`" + ` is fine for monthly
   notes but ambiguous for daily notes.
3. Each path segment must be a legal filename: no ` + "`? < > \\ : * | \"`" + `, no
   control characters, not ` + "`.`" + ` or ` + "`..`" + `, not a Windows reserved name.
4. ` + "`/`" + ` in a format creates nested folders (` + "`YYYY/MM/YYYY-MM-DD`" + `).
5. Old formats stay valid for resolving existing notes after a change.

Check a candidate with the ` + "`validate_format`" + ` tool before saving it.

## Template tokens

| Token                         | Replaced with                                   |
|-------------------------------|-------------------------------------------------|
| ` + "`{{title}}` `{{date}}`" + `         | the note's filename without ` + "`.md`" + `               |
| ` + "`{{time}}`" + `                    | current time, ` + "`HH:mm`" + `                          |
| ` + "`{{date:FORMAT}}`" + `             | note date in FORMAT                             |
| ` + "`{{date+1d:FORMAT}}`" + `          | note date shifted (y, q, M, w, d, h, m, s)      |
| ` + "`{{yesterday}}` `{{tomorrow}}`" + `  | daily notes only                                |
| ` + "`{{monday:FORMAT}}`" + `           | weekly notes only, that weekday of the week     |

## Example weekly template

` + "```" + `markdown
# Week {{date:w}} of {{date:gggg}}

- Monday {{monday:MMM D}}
- Friday {{friday:MMM D}}

Last week: [[{{date-1w}}]]
` + "```" + `
`
