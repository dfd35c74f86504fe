package pyrun

// driverScript imports the solution (bracketing any import-time failure
// with sentinels so it is distinguishable from test failures), discovers
// and runs every test*.py file with the stock unittest runner, and emits a
// machine-readable summary between sentinel lines so it survives arbitrary
// prints from the code under test.
const driverScript = `import io
import json
import sys
import traceback
import unittest

try:
    import solution  # noqa: F401
except BaseException:
    print("IMPORT_ERROR_START", file=sys.stderr)
    traceback.print_exc(file=sys.stderr)
    print("IMPORT_ERROR_END", file=sys.stderr)
    sys.exit(3)

buf = io.StringIO()
suite = unittest.TestLoader().discover("/", pattern="test*.py")
result = unittest.TextTestRunner(stream=buf, verbosity=2).run(suite)

report = {
    "testsRun": result.testsRun,
    "failures": len(result.failures),
    "errors": len(result.errors),
    "text": buf.getvalue(),
}
print("===AUTOGRADER_JSON_BEGIN===")
print(json.dumps(report))
print("===AUTOGRADER_JSON_END===")
`
