// Package response separates model reasoning from final answers.
//
// Local models present output in one of three shapes: plain text, text with a
// delimited reasoning block such as <think>...</think>, or structured sections
// carrying reasoning and answer separately. A Classifier maps model identifiers
// to one of these shapes, a Handler parses raw text of a given shape, and an
// AutoHandler combines the two.
//
//	p := response.AutoHandle("<think>2+2 is 4</think>The answer is 4.", "deepseek-r1:7b")
//	fmt.Println(p.Clean)     // The answer is 4.
//	fmt.Println(p.Reasoning) // 2+2 is 4
//
// Handling never fails. Text that does not match the expected shape is
// returned trimmed in Clean with Extracted false.
package response
