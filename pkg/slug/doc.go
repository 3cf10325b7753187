// Package slug turns free-form names into lowercase ASCII slugs.
//
// Template identifiers are stored as slugs, so operators can type a name
// ("Order Shipped!") and get a stable lookup key ("order-shipped"):
//
//	slug.Make("Café & Restaurant")                                   // "cafe-restaurant"
//	slug.Make("Fish & Chips", slug.CustomReplace(map[string]string{"&": "and"})) // "fish-and-chips"
//	slug.Make("Member's news", slug.StripChars("'"))                 // "members-news"
//	slug.Make("Very long title", slug.MaxLength(9))                  // "very-long"
//
// Latin diacritics are folded to ASCII; other scripts and emoji act as word breaks.
package slug
