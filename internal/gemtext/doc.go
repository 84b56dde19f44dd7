// Package gemtext parses text/gemini documents into typed blocks.
//
// # Line Types
//
// Each line is classified after trimming leading whitespace, in this order:
//
//	```alt      toggles preformatted mode (alt text only on the opening fence)
//	=> url text a link; the label is optional
//	### text    level 3 heading
//	## text     level 2 heading
//	# text      level 1 heading
//	* item      list item; consecutive items form one List block
//	>text       quote; one block per line
//	anything    plain text, kept untrimmed
//
// Inside a preformatted block lines are kept verbatim until the next fence.
//
// # Unterminated Fences
//
// By default a preformatted block that is still open at end of input is
// dropped. WithFlushUnterminated emits it instead.
//
// # Usage
//
//	doc := gemtext.Parse(body)
//	for _, b := range doc.Blocks {
//		switch b := b.(type) {
//		case gemtext.Heading:
//			fmt.Println(b.Level, b.Text)
//		case gemtext.Link:
//			fmt.Println(b.URL, b.Label)
//		}
//	}
//
// Parse never fails: anything it does not recognize becomes a Text block.
package gemtext
