package conversation

const getMore = "To get a more detailed help message, ask me " +
	"```@indrabot what can you do?```"

const shortHelp = "Ask me a question with a direct message " +
	"(using `@indrabot`) about mechanisms and I will " +
	"try to answer them. For example: \n" +
	"```@indrabot what activates NF-kB?```\n or " +
	"```@indrabot what phosphorylates RB1?```\n " +
	"You can try various ways of phrasing your questions, and " +
	"if there is anything I don't understand, I will suggest a " +
	"similar question to yours that I do know how to answer. " +
	"My answer is formatted as a snippet with a list of " +
	"statements with their human-readable English language summaries, " +
	"original evidence sentences, and source PMIDs (if available). " +
	"The response also contains a link to an " +
	"HTML interface that shows the list of statements in " +
	"more detail.\n\n"

const longHelp = "Scopes and Mechanism Types:\n" +
	"Your question can be mechanism specific, for example you " +
	"can ask a question like ```can BRAF activate Mek1?``` or " +
	"```what does JAK1 phosphorylate?```, and you will get answers " +
	"that fit the scope, i.e., with mechanisms that involve " +
	"activation or phosphorylation, respectively. To " +
	"broaden the scope, you can ask ```what affects CDK4?```, to " +
	"get any type of mechanism where CDK4 is downstream, or in " +
	"the same manner: ```what are the targets of EGFR?``` " +
	"to get any mechanism where EGFR is upstream of another " +
	"entity. If you want an even broader scope you can ask " +
	"```what interacts with DOCK5?```, to get both upstream and " +
	"downstream interactions of any kind, including binding.\n" +
	"Output Formats:\n" +
	"There are five output formats I support that you can " +
	"specify by ending your message with, for instance, `/json`. " +
	"These formats are as follows:\n" +
	"*tsv: " +
	"A tab separated list of statements, their English " +
	"assembled versions, their evidence texts that " +
	"produced the statement and a PMID (if available) " +
	"where the evidence was found.\n" +
	"*json: " +
	"A JSON list of the statements found, exactly as the " +
	"INDRA database returned them.\n" +
	"*pdf: " +
	"A PDF document containing a directed node-edge " +
	"graph visualization of the statements.\n" +
	"*html: " +
	"An HTML document that contains an HTML-formatted " +
	"version of the statements. This is the " +
	"same page that is linked at the bottom of each " +
	"response.\n" +
	"*dot: " +
	"The same graph as the PDF, as Graphviz source you can edit."

// Help returns the short help, or the short and long help together.
func Help(long bool) string {
	if long {
		return shortHelp + longHelp
	}
	return shortHelp + getMore
}
