package ir

import "strconv"

// Vocabulary IRIs emitted by the engine, already serialized as terms.
const (
	RDFFirst = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#first>"
	RDFRest  = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#rest>"
	RDFNil   = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#nil>"
	RDFType  = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#type>"
	RDFBag   = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#Bag>"
	RDFSeq   = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#Seq>"
	RDFAlt   = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#Alt>"
)

// RDFMember returns the container membership property rdf:_k.
func RDFMember(k int) string {
	return "<http://www.w3.org/1999/02/22-rdf-syntax-ns#_" + strconv.Itoa(k) + ">"
}

// Datatype and graph IRIs recognized in rule values (unwrapped).
const (
	XSDBoolean  = "http://www.w3.org/2001/XMLSchema#boolean"
	XSDDateTime = "http://www.w3.org/2001/XMLSchema#dateTime"
	XSDInteger  = "http://www.w3.org/2001/XMLSchema#integer"

	// DefaultGraph is the rr:defaultGraph constant.
	DefaultGraph = "http://www.w3.org/ns/r2rml#defaultGraph"
)

