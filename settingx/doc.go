// Package settingx implements the typed settings store: named, grouped,
// typed configuration entries whose values are validated on every write and
// whose changes are broadcast on an eventx.Bus.
//
// Overview:
//   - Responsibility: Enforce the type/value contract before a write commits,
//     then notify subscribers after it commits
//   - Key Types: Setting, Type, Update, Criteria, Hooks, Repository, Store, View
//   - Concurrency Model: The Store holds no locks; single-row atomicity comes
//     from the Repository. View is safe for concurrent reads
//   - Error Semantics: Validation failures are *ValidationError wrapped with
//     core/errors.CodeInvalidArgument and always abort the write. Listener
//     failures never reach the writer
//   - Performance Notes: An update that changes value but not type costs one
//     extra read to find the current type
//
// Channels:
//
//	setting:pre-update    before an update (or upsert-style create) is written; args: filter, update
//	<group>:<label>       after an update commits; arg: the updated *Setting
//	setting:post-create   after a create commits; arg: the created *Setting
//	setting:post-delete   after a delete commits; arg: the deleted *Setting
//	setting:post-write    after an update that leaves value alone commits; arg: the updated *Setting
//
// Usage:
//
//	store := settingx.NewStore(settingx.NewGORMRepository(db), bus, settingx.WithTranslator(tr))
//	_, err := store.Update(ctx, settingx.Criteria{"group": "chatbot", "label": "fallback"},
//		settingx.Update{"value": true})
package settingx
