// Package relation builds relationship models (joints between walls,
// alignments between entities) for one document.
//
// Each Context owns one ConfigRegister, holding the relationship types a
// catalog declared and their default options, and one Factory, holding the
// model constructors. Factory.Create merges a config's defaults with the
// caller's options, decodes and validates them, and returns a Model. Insert
// then stores the model in the graph as a Relationship entity, so a
// relationship is created, undone and redone like any other entity.
package relation
