package ir

// TermKind identifies how a term map produces its value.
// The zero value means the term map is absent.
type TermKind string

const (
	KindConstant   TermKind = "constant"
	KindTemplate   TermKind = "template"
	KindReference  TermKind = "reference"
	KindFunction   TermKind = "function"
	KindQuoted     TermKind = "quotedTriplesMap"
	KindParent     TermKind = "parentTriplesMap"
	KindGather     TermKind = "gather"
	KindAbsent     TermKind = ""
)

// ValidTermKinds defines allowed term map kinds.
var ValidTermKinds = map[TermKind]bool{
	KindConstant:  true,
	KindTemplate:  true,
	KindReference: true,
	KindFunction:  true,
	KindQuoted:    true,
	KindParent:    true,
	KindGather:    true,
}

// TermType is the RDF term type produced by a term map.
// The empty TermType leaves the value unwrapped (language and datatype maps).
type TermType string

const (
	TermIRI       TermType = "iri"
	TermBlankNode TermType = "blankNode"
	TermLiteral   TermType = "literal"
)

// TermMap is one position of a rule (subject, predicate, object, graph).
//
// Value holds the constant, template, reference name, function execution
// id, or the referenced triples map id depending on Kind.
type TermMap struct {
	Kind     TermKind `json:"kind,omitempty"`
	Value    string   `json:"value,omitempty"`
	TermType TermType `json:"termtype,omitempty"`
}

// IsAbsent reports whether the term map was not declared.
func (t TermMap) IsAbsent() bool {
	return t.Kind == KindAbsent
}

// Selector chooses between a language tag and a datatype on literal objects.
type Selector string

const (
	SelectLanguage Selector = "language"
	SelectDatatype Selector = "datatype"
)

// LangDatatypeMap is the language-or-datatype spec of a literal object.
type LangDatatypeMap struct {
	Selector Selector `json:"selector"`
	Kind     TermKind `json:"kind"`
	Value    string   `json:"value"`
}

// JoinCondition pairs a child reference with a parent reference.
type JoinCondition struct {
	Child  string `json:"child"`
	Parent string `json:"parent"`
}

// GatherKind is the target structure of an RML-CC gather.
type GatherKind string

const (
	GatherList GatherKind = "list"
	GatherBag  GatherKind = "bag"
	GatherSeq  GatherKind = "seq"
	GatherAlt  GatherKind = "alt"
)

// IsContainer reports whether the gather builds an rdf:Bag, rdf:Seq or rdf:Alt.
func (k GatherKind) IsContainer() bool {
	return k == GatherBag || k == GatherSeq || k == GatherAlt
}

// Strategy combines multiple gathered references.
type Strategy string

const (
	StrategyAppend    Strategy = "append"
	StrategyCartesian Strategy = "cartesianProduct"
)

// GatherSpec describes an RML-CC gather directive.
type GatherSpec struct {
	References []string   `json:"references"`
	As         GatherKind `json:"as"`
	Strategy   Strategy   `json:"strategy,omitempty"`
	AllowEmpty bool       `json:"allow_empty,omitempty"`
}

// SourceType identifies the logical source connector.
type SourceType string

const (
	SourceRDB    SourceType = "rdb"
	SourceJSON   SourceType = "json"
	SourceCSV    SourceType = "csv"
	SourceMemory SourceType = "memory"
)

// ValidSourceTypes defines allowed logical source types.
var ValidSourceTypes = map[SourceType]bool{
	SourceRDB:    true,
	SourceJSON:   true,
	SourceCSV:    true,
	SourceMemory: true,
}

// Source is the logical source of a rule.
//
// Name refers to a configured connection (database DSN, base directory or
// in-memory table set). Value is the table name, SQL query, or file path.
type Source struct {
	Name     string     `json:"name"`
	Type     SourceType `json:"type"`
	Value    string     `json:"value"`
	Query    bool       `json:"query,omitempty"`
	Iterator string     `json:"iterator,omitempty"`
}

// Rule is one normalized mapping rule: a triples map x predicate-object map.
//
// Rules sharing an ID belong to the same triples map and must agree on
// Subject, SubjectJoin and SubjectGather.
type Rule struct {
	ID            string           `json:"id"`
	Partition     string           `json:"partition,omitempty"`
	Source        Source           `json:"source"`
	Subject       TermMap          `json:"subject"`
	Predicate     TermMap          `json:"predicate"`
	Object        TermMap          `json:"object"`
	LangDatatype  *LangDatatypeMap `json:"lang_datatype,omitempty"`
	Graph         TermMap          `json:"graph,omitempty"`
	SubjectJoin   []JoinCondition  `json:"subject_join,omitempty"`
	ObjectJoin    []JoinCondition  `json:"object_join,omitempty"`
	SubjectGather *GatherSpec      `json:"subject_gather,omitempty"`
	ObjectGather  *GatherSpec      `json:"object_gather,omitempty"`
}

// PartitionKey returns the partition the rule is materialized in.
// Rules without an explicit partition are grouped by triples map.
func (r Rule) PartitionKey() string {
	if r.Partition != "" {
		return r.Partition
	}
	if r.ID != "" {
		return r.ID
	}
	return "default"
}

// FunctionParam is one parameter of a function execution.
type FunctionParam struct {
	Name  string   `json:"name"`
	Kind  TermKind `json:"kind"`
	Value string   `json:"value"`
}

// FunctionExecution is a row of the function-rule table.
type FunctionExecution struct {
	ID       string          `json:"id"`
	Function string          `json:"function"`
	Params   []FunctionParam `json:"params"`
}

// Partition is an independent group of rules.
type Partition struct {
	Key   string `json:"key"`
	Rules []Rule `json:"rules"`
}

// RuleTable is the normalized form of a mapping document.
type RuleTable struct {
	Rules     []Rule                       `json:"rules"`
	Functions map[string]FunctionExecution `json:"functions,omitempty"`
}

// Lookup returns the first rule of the triples map with the given id.
func (t *RuleTable) Lookup(id string) (Rule, bool) {
	for _, r := range t.Rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// Partitions groups rules by PartitionKey in order of first appearance.
func (t *RuleTable) Partitions() []Partition {
	index := make(map[string]int)
	var parts []Partition
	for _, r := range t.Rules {
		key := r.PartitionKey()
		i, ok := index[key]
		if !ok {
			i = len(parts)
			index[key] = i
			parts = append(parts, Partition{Key: key})
		}
		parts[i].Rules = append(parts[i].Rules, r)
	}
	return parts
}
