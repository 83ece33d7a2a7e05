package notion

const (
	// Notion rejects rich_text content over 2000 characters.
	summaryLimit   = 2000
	blockChunkSize = 1900
)

func buildPagePayload(databaseID string, page ExportPage) map[string]any {
	title := page.Title
	if title == "" {
		title = "Untitled meeting"
	}
	return map[string]any{
		"parent": map[string]any{"database_id": databaseID},
		"properties": map[string]any{
			"Name": map[string]any{
				"title": []any{textFragment(title)},
			},
			"Topic": map[string]any{
				"rich_text": []any{textFragment(title)},
			},
			"Date": map[string]any{
				"date": map[string]any{"start": page.Date},
			},
			"Summary": map[string]any{
				"rich_text": []any{textFragment(truncate(page.Summary, summaryLimit))},
			},
		},
		"children": buildTranscriptBlocks(page.Transcript),
	}
}

// buildTranscriptBlocks renders a heading followed by the transcript split
// into paragraph blocks under the per-block size limit.
func buildTranscriptBlocks(transcript string) []any {
	blocks := []any{
		map[string]any{
			"object": "block",
			"type":   "heading_2",
			"heading_2": map[string]any{
				"rich_text": []any{typedTextFragment("Full transcript")},
			},
		},
	}
	if transcript == "" {
		return append(blocks, paragraphBlock("(no transcript)"))
	}
	for _, chunk := range chunkText(transcript, blockChunkSize) {
		blocks = append(blocks, paragraphBlock(chunk))
	}
	return blocks
}

func paragraphBlock(content string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "paragraph",
		"paragraph": map[string]any{
			"rich_text": []any{typedTextFragment(content)},
		},
	}
}

func textFragment(content string) map[string]any {
	return map[string]any{"text": map[string]any{"content": content}}
}

func typedTextFragment(content string) map[string]any {
	return map[string]any{"type": "text", "text": map[string]any{"content": content}}
}

func chunkText(s string, size int) []string {
	var chunks []string
	for len(s) > size {
		chunks = append(chunks, s[:size])
		s = s[size:]
	}
	return append(chunks, s)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
