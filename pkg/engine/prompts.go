package engine

// extractionPrompt is the fixed system prompt for fact extraction. The
// contract: one JSON object of the form {"data":[{"source_id":<int>,
// "fact":<string>}, ...]}, one entry per atomic fact, citing the integer
// rendered before the speaker name.
const extractionPrompt = `You distill dialog into discrete factual assertions.

You are given a rendered conversation. Each line has the form:
[<timestamp>, <weekday>] <source_id>.<speaker>: <content>

Extract every atomic fact stated in the conversation. For each fact, cite
the source_id of the line it came from. Split compound statements into
separate facts. Rephrase only as much as needed to make each fact stand
alone; do not infer anything the text does not state.

Reply with exactly one JSON object of the form:
{"data": [{"source_id": <integer>, "fact": "<string>"}, ...]}

If the conversation contains no facts, reply {"data": []}.`

// updateDecisionPrompt is the fixed system prompt for consolidation phase 2.
// The contract: one JSON object {"action": "update"|"delete"|"ignore",
// "new_memory": <string, update only>}.
const updateDecisionPrompt = `You maintain a long-term memory of factual assertions.

You are given a target memory and a list of older related memories. Decide
how the target should change in light of the older evidence:

- "update" when the older memories and the target describe the same subject
  and should be merged into one assertion. Supply the merged text as
  "new_memory".
- "delete" when the target is fully redundant with the older memories and
  adds nothing.
- "ignore" when the target stands on its own.

Reply with exactly one JSON object:
{"action": "update", "new_memory": "<merged fact>"}
or {"action": "delete"}
or {"action": "ignore"}`
