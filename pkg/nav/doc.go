// Package nav implements the page lifecycle controller of a navigation
// region.
//
// A region is one place where pages are shown: a connected browser tab or a
// single server-side render. Every path change goes through the same steps:
//
//  1. The generation counter is incremented and the progress indicator
//     started. The region enters Resolving.
//  2. The path is resolved against the route table. Unknown paths send the
//     user home, replacing the history entry (Redirecting).
//  3. The page factory builds the page content (Rendering), the breadcrumb
//     trail and title are computed, and the View is published.
//  4. The progress indicator is finished.
//
// Navigations may overlap. Only the most recent one is allowed to change
// state or publish; older ones run to completion and their results are
// dropped. Nothing is cancelled on supersession.
//
// Errors and panics raised while resolving or rendering put the region in
// Faulted and are handed to the Recoverer, which either redirects home
// (after the user acknowledged a notice) or asks for a full reload.
package nav
