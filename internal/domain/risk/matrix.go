package risk

// pair keys the composition table by its two operands.
type pair struct {
	a Category
	b Category
}

// compositionTable is the ISO 27005-style five-by-five table used for every
// category composition on the platform.  Rows are the first operand.  The
// table is deliberately asymmetric: a Very High first operand dominates
// harder than a Very High second operand.
var compositionTable = map[pair]Category{
	{VeryHigh, VeryHigh}: VeryHigh,
	{VeryHigh, High}:     VeryHigh,
	{VeryHigh, Medium}:   High,
	{VeryHigh, Low}:      High,
	{VeryHigh, VeryLow}:  Medium,

	{High, VeryHigh}: VeryHigh,
	{High, High}:     High,
	{High, Medium}:   High,
	{High, Low}:      Medium,
	{High, VeryLow}:  Low,

	{Medium, VeryHigh}: High,
	{Medium, High}:     High,
	{Medium, Medium}:   Medium,
	{Medium, Low}:      Low,
	{Medium, VeryLow}:  Low,

	{Low, VeryHigh}: Medium,
	{Low, High}:     Medium,
	{Low, Medium}:   Low,
	{Low, Low}:      Low,
	{Low, VeryLow}:  VeryLow,

	{VeryLow, VeryHigh}: Low,
	{VeryLow, High}:     Low,
	{VeryLow, Medium}:   Low,
	{VeryLow, Low}:      VeryLow,
	{VeryLow, VeryLow}:  VeryLow,
}

// ComposeSameKind combines two categories of the same kind, such as a threat
// likelihood with an asset likelihood.  Either operand being empty or unknown
// yields the first operand unchanged, so an undefined value propagates rather
// than fabricating a level.
func ComposeSameKind(a, b Category) Category {
	if c, ok := compositionTable[pair{a, b}]; ok {
		return c
	}
	return a
}

// DeriveRisk combines a likelihood category with an impact category into an
// overall risk category.  It reads the same table as ComposeSameKind; the
// distinction exists so call sites state which composition they perform.
func DeriveRisk(likelihood, impact Category) Category {
	return ComposeSameKind(likelihood, impact)
}
