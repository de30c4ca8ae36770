// Package frontier provides the crawl work queue and its deduplication
// authority.
//
// The frontier owns two pieces of shared crawl state: the queue of URL
// records awaiting fetch and the claim set of every URL that has ever been
// admitted. Admission is an atomic claim-if-absent, so a URL can be fetched
// at most once no matter how many workers discover it concurrently.
//
// Completion detection is built in: Dequeue blocks while work may still
// appear and returns false only once the queue is empty and no dequeued
// record is still being processed. Workers must pair every successful
// Dequeue with a Done call for this to hold.
package frontier
