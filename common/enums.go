// This package exists because reader enums are needed both by configuration
// and by the navigation core and I do not want those packages to depend on
// each other.
package common

// Specification of the visual page-transition effect. Scroll is special - it
// changes the shape of the virtual page sequence (whole chapters instead of
// pages), everything else is presentation only.
// ENUM(none, cover, slide, curl, scroll)
type FlipStyle int

func (f FlipStyle) IsScroll() bool {
	return f == FlipStyleScroll
}

// Specification of chapter access restrictions.
// ENUM(free, restrictedFree, paid)
type AccessTier int

func (a AccessTier) NeedsEntitlement() bool {
	return a == AccessTierRestrictedFree || a == AccessTierPaid
}

// Direction of a page flip.
// ENUM(forward, backward)
type FlipDirection int

func (d FlipDirection) Offset() int {
	if d == FlipDirectionBackward {
		return -1
	}
	return 1
}
