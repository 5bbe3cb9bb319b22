package guide

// ColumnDef describes a score-table column the pipeline reads.
type ColumnDef struct {
	Name        string // header name as written by FlashFry
	Description string // human-readable description
}

// Score table column names.
const (
	ColContig         = "contig"
	ColStart          = "start"
	ColStop           = "stop"
	ColTarget         = "target"
	ColContext        = "context"
	ColOrientation    = "orientation"
	ColDoenchOnTarget = "Doench2014OnTarget"
	ColCFDMaxOT       = "DoenchCFD_maxOT"
	ColCFDSpecificity = "DoenchCFD_specificityscore"
	ColHsu2013        = "Hsu2013"
	ColMorenoMateos   = "Moreno-Mateos2015OnTarget"
	ColDistance       = "Distance from Exon"
)

// RequiredColumns must be present in the scorer's output.
var RequiredColumns = []ColumnDef{
	{Name: ColTarget, Description: "Protospacer plus PAM"},
	{Name: ColOrientation, Description: "FWD or RVS relative to the reference"},
	{Name: ColDoenchOnTarget, Description: "Doench 2014 on-target efficiency"},
	{Name: ColCFDMaxOT, Description: "Highest CFD score of any off-target"},
	{Name: ColCFDSpecificity, Description: "Aggregate CFD specificity"},
	{Name: ColHsu2013, Description: "Hsu 2013 specificity score"},
	{Name: ColMorenoMateos, Description: "Moreno-Mateos 2015 on-target score"},
}

// OptionalColumns are read when present.
var OptionalColumns = []ColumnDef{
	{Name: ColContig, Description: "FASTA record the guide was found in"},
	{Name: ColStart, Description: "0-based start within the record"},
	{Name: ColStop, Description: "0-based stop within the record"},
	{Name: ColContext, Description: "Guide with flanking sequence"},
}

// OutputColumns are the columns of the ranked-guide table handed to the
// selection step.
var OutputColumns = []string{
	ColTarget,
	ColOrientation,
	ColDoenchOnTarget,
	ColCFDMaxOT,
	ColCFDSpecificity,
	ColHsu2013,
	ColMorenoMateos,
	ColDistance,
}
